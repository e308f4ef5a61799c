package mysql

const insertReviewsPrefix = "INSERT INTO reviews\n  (row_no, review_id, review_body, location, created_at)\nVALUES "

// Rows are keyed by dataset row number: re-ingesting a file overwrites each
// row in place, and identical rows stay separate. A known review_id is kept.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  review_id = COALESCE(VALUES(review_id), reviews.review_id),\n" +
	"  review_body = VALUES(review_body),\n" +
	"  location = VALUES(location),\n" +
	"  created_at = VALUES(created_at)\n"

// Dataset order is the store's iteration order.
const loadReviewsSQL = `
SELECT row_no, review_id, review_body, location, created_at
FROM reviews
ORDER BY row_no
`
