package database

// Receiver queries
const (
	queryInsertReceiver = `
		INSERT INTO receivers (id, first_name, last_name, dob, balance, version, email, has_app_access, created_at)
		VALUES (?, ?, ?, ?, '0', 1, ?, 0, ?)`

	querySelectReceiverColumns = `
		SELECT id, first_name, last_name, dob, balance, version, email, has_app_access,
		       id_picture_file, id_document_file, created_at
		FROM receivers`

	queryGetReceiver = querySelectReceiverColumns + ` WHERE id = ?`

	queryListReceivers = querySelectReceiverColumns + ` ORDER BY created_at ASC`

	queryUpdateReceiverEmail = `UPDATE receivers SET email = ? WHERE id = ?`

	queryUpdateReceiverPicture = `UPDATE receivers SET id_picture_file = ? WHERE id = ?`

	queryUpdateReceiverDocument = `UPDATE receivers SET id_document_file = ? WHERE id = ?`

	queryGrantAppAccess = `UPDATE receivers SET has_app_access = 1 WHERE id = ? AND has_app_access = 0`
)

// Organization queries
const (
	queryInsertOrganization = `
		INSERT INTO organizations (id, name, phone, description, max_occupancy, occupancy,
			street, apt, city, province, postal_code, country, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	querySelectOrganizationColumns = `
		SELECT id, name, phone, description, banner_file, logo_file, max_occupancy, occupancy,
		       street, apt, city, province, postal_code, country, latitude, longitude, created_at
		FROM organizations`

	queryGetOrganization = querySelectOrganizationColumns + ` WHERE id = ?`

	queryListOrganizations = querySelectOrganizationColumns + ` ORDER BY name ASC`

	queryUpdateOccupancy = `UPDATE organizations SET occupancy = ? WHERE id = ?`

	queryUpdateOrganizationLogo = `UPDATE organizations SET logo_file = ? WHERE id = ?`

	queryUpdateOrganizationBanner = `UPDATE organizations SET banner_file = ? WHERE id = ?`
)

// Sender queries
const (
	queryInsertSender = `
		INSERT INTO senders (id, is_anonymous, first_name, last_name, email, name,
			street, apt, city, province, postal_code, country, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	querySelectSenderColumns = `
		SELECT id, is_anonymous, first_name, last_name, email, name,
		       street, apt, city, province, postal_code, country, created_at
		FROM senders`

	queryGetSender = querySelectSenderColumns + ` WHERE id = ?`

	queryFindAnonymousSender = querySelectSenderColumns + `
		WHERE is_anonymous = 1 AND name = ? AND street = ? AND postal_code = ? AND country = ?
		LIMIT 1`
)

// User mapping queries
const (
	queryGetUser = `SELECT auth_uid, internal_id, role FROM users WHERE auth_uid = ?`

	queryUpsertUser = `
		INSERT INTO users (auth_uid, internal_id, role) VALUES (?, ?, ?)
		ON CONFLICT(auth_uid) DO UPDATE SET internal_id = excluded.internal_id, role = excluded.role`

	queryInsertUser = `INSERT INTO users (auth_uid, internal_id, role) VALUES (?, ?, ?)`
)

// Balance and ledger queries
const (
	queryGetReceiverBalance = `SELECT balance, version FROM receivers WHERE id = ?`

	queryUpdateReceiverBalance = `
		UPDATE receivers SET balance = ?, version = version + 1
		WHERE id = ? AND version = ?`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transaction_id, account_type, account_id, debit_amount, credit_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryListJournalEntries = `
		SELECT account_type, account_id, debit_amount, credit_amount
		FROM journal_entries WHERE transaction_id = ? ORDER BY rowid ASC`
)

// Transaction queries
const (
	queryInsertTransaction = `
		INSERT INTO transactions (id, amount, currency, type, receiver_id, sender_id, confirmed,
			payment_wallet, payment_card, created_at, confirmed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	querySelectTransactionColumns = `
		SELECT id, amount, currency, type, receiver_id, sender_id, confirmed,
		       payment_wallet, payment_card, created_at, confirmed_at
		FROM transactions`

	queryGetTransaction = querySelectTransactionColumns + ` WHERE id = ?`

	queryListTransactionsByReceiver = querySelectTransactionColumns + ` WHERE receiver_id = ? ORDER BY created_at DESC`

	queryListTransactionsBySender = querySelectTransactionColumns + ` WHERE sender_id = ? ORDER BY created_at DESC`

	queryDeleteTransaction = `DELETE FROM transactions WHERE id = ?`

	queryConfirmTransaction = `
		UPDATE transactions
		SET confirmed = 1,
		    sender_id = CASE WHEN ? = '' THEN sender_id ELSE ? END,
		    payment_wallet = ?, payment_card = ?, confirmed_at = ?
		WHERE id = ? AND confirmed = 0`

	queryGetTransactionConfirmed = `SELECT confirmed FROM transactions WHERE id = ?`
)

// Post queries
const (
	queryInsertPost = `
		INSERT INTO posts (id, author_id, content, visibility, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetPost = `
		SELECT id, author_id, content, visibility, parent_id, created_at
		FROM posts WHERE id = ?`

	queryPostExists = `SELECT 1 FROM posts WHERE id = ?`

	queryListPostLikes = `SELECT user_id FROM post_likes WHERE post_id = ? ORDER BY created_at ASC`

	queryListPostReplies = `SELECT id FROM posts WHERE parent_id = ? ORDER BY created_at ASC`

	queryDeletePost = `DELETE FROM posts WHERE id = ?`

	queryDeletePostLikes = `DELETE FROM post_likes WHERE post_id = ?`

	queryInsertAuthorIndex = `INSERT INTO post_authors (author_id, post_id, created_at) VALUES (?, ?, ?)`

	queryDeleteAuthorIndex = `DELETE FROM post_authors WHERE post_id = ?`

	queryInsertPublicIndex = `INSERT INTO post_public (post_id, created_at) VALUES (?, ?)`

	queryDeletePublicIndex = `DELETE FROM post_public WHERE post_id = ?`

	queryListAuthorPosts = `SELECT post_id, created_at FROM post_authors WHERE author_id = ? ORDER BY created_at ASC`

	queryListPublicPosts = `SELECT post_id, created_at FROM post_public ORDER BY created_at DESC`

	queryInsertLike = `INSERT INTO post_likes (post_id, user_id, created_at) VALUES (?, ?, ?)`

	queryDeleteLike = `DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`
)

// Social graph queries
const (
	queryInsertFriendship = `
		INSERT INTO friendships (id, user_1, user_2, created_at, friends_since)
		VALUES (?, ?, ?, ?, ?)`

	querySelectFriendshipColumns = `SELECT id, user_1, user_2, created_at, friends_since FROM friendships`

	queryGetFriendship = querySelectFriendshipColumns + ` WHERE id = ?`

	queryFindFriendshipBetween = querySelectFriendshipColumns + `
		WHERE (user_1 = ? AND user_2 = ?) OR (user_1 = ? AND user_2 = ?)
		LIMIT 1`

	queryListFriendships = querySelectFriendshipColumns + `
		WHERE user_1 = ? OR user_2 = ? ORDER BY created_at ASC`

	queryAcceptFriendship = `UPDATE friendships SET friends_since = ? WHERE id = ? AND friends_since IS NULL`

	queryDeleteFriendship = `DELETE FROM friendships WHERE id = ?`

	querySubscribe = `INSERT OR IGNORE INTO subscriptions (receiver_id, organization_id) VALUES (?, ?)`

	queryUnsubscribe = `DELETE FROM subscriptions WHERE receiver_id = ? AND organization_id = ?`

	queryListSubscriptions = `SELECT organization_id FROM subscriptions WHERE receiver_id = ? ORDER BY organization_id ASC`
)
