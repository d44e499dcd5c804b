package feed

import (
	"sort"

	"donneur-go/internal/models"

	"github.com/juju/collections/set"
)

// publicEvery is how many followed posts separate two spliced public posts.
const publicEvery = 5

// Interleave orders a viewer's feed. Followed posts are walked oldest
// first; before the followed post at every index i with i%5 == 0 and
// i != 0, the next public post not already followed is spliced in. Public
// posts left over are appended newest first.
func Interleave(followed []models.PostRef, public []models.PostRef) []string {
	followed = append([]models.PostRef(nil), followed...)
	sort.SliceStable(followed, func(i, j int) bool {
		if followed[i].CreatedAt.Equal(followed[j].CreatedAt) {
			return followed[i].PostId < followed[j].PostId
		}
		return followed[i].CreatedAt.Before(followed[j].CreatedAt)
	})

	public = append([]models.PostRef(nil), public...)
	sort.SliceStable(public, func(i, j int) bool {
		if public[i].CreatedAt.Equal(public[j].CreatedAt) {
			return public[i].PostId < public[j].PostId
		}
		return public[i].CreatedAt.After(public[j].CreatedAt)
	})

	followedIds := set.NewStrings()
	for _, ref := range followed {
		followedIds.Add(ref.PostId)
	}

	emitted := set.NewStrings()
	next := 0
	popPublic := func() (string, bool) {
		for next < len(public) {
			id := public[next].PostId
			next++
			if followedIds.Contains(id) || emitted.Contains(id) {
				continue
			}
			emitted.Add(id)
			return id, true
		}
		return "", false
	}

	out := make([]string, 0, len(followed)+len(public))
	for i, ref := range followed {
		if i%publicEvery == 0 && i != 0 {
			if id, ok := popPublic(); ok {
				out = append(out, id)
			}
		}
		out = append(out, ref.PostId)
	}
	for {
		id, ok := popPublic()
		if !ok {
			break
		}
		out = append(out, id)
	}
	return out
}

// mergeRefs collapses refs from several authors into one list keyed by post id.
func mergeRefs(groups ...[]models.PostRef) []models.PostRef {
	seen := set.NewStrings()
	var merged []models.PostRef
	for _, group := range groups {
		for _, ref := range group {
			if seen.Contains(ref.PostId) {
				continue
			}
			seen.Add(ref.PostId)
			merged = append(merged, ref)
		}
	}
	return merged
}
