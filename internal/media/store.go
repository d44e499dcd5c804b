// Package media stores profile images in S3. Uploads are decoded and
// re-encoded as PNG before they are written.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"path"
	"strings"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

const (
	ErrInvalidMediaType = errors.ConstError("invalid media type")
	ErrInvalidImage     = errors.ConstError("invalid image")
)

var mediaTypes = set.NewStrings("id_document", "id_picture", "logo", "banner", "picture")

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Store struct {
	client objectPutter
	bucket string
	region string
	prefix string
}

func NewStore(ctx context.Context, cfg models.MediaConfig) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("media bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newStore(s3.NewFromConfig(awsCfg), cfg), nil
}

func newStore(client objectPutter, cfg models.MediaConfig) *Store {
	return &Store{client: client, bucket: cfg.Bucket, region: cfg.Region, prefix: cfg.Prefix}
}

// UploadImage normalises data to PNG and stores it at <type>/<owner>.png,
// replacing any previous image. data may be raw bytes, base64, or a base64
// data URL.
func (s *Store) UploadImage(ctx context.Context, ownerId, mediaType string, data []byte) (string, error) {
	if !mediaTypes.Contains(mediaType) {
		return "", apperrors.New(apperrors.InvalidInput, ErrInvalidMediaType, "%q", mediaType)
	}

	encoded, err := NormalizeImage(data)
	if err != nil {
		return "", err
	}

	key := path.Join(s.prefix, mediaType, ownerId+".png")
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(encoded),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.DependencyFailure, apperrors.DependencyFailure, err, "upload %s", key)
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	zap.L().Info("Image uploaded", zap.String("key", key), zap.Int("bytes", len(encoded)))
	return url, nil
}

// NormalizeImage decodes a PNG, JPEG or WebP image and returns it as PNG.
func NormalizeImage(data []byte) ([]byte, error) {
	raw := decodeBase64(data)

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.New(apperrors.InvalidInput, ErrInvalidImage, "%v", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperrors.New(apperrors.InvalidInput, ErrInvalidImage, "re-encode %s: %v", format, err)
	}
	return buf.Bytes(), nil
}

// decodeBase64 strips a data URL header and decodes base64 payloads. Input
// that is not base64 is returned unchanged.
func decodeBase64(data []byte) []byte {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "data:") {
		if _, payload, found := strings.Cut(text, ","); found {
			text = payload
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return data
	}
	return decoded
}
