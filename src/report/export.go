package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"tweet-sentiment/src/tweets"
)

// ExportHeader is the column layout written by WriteCSV. It reads back through
// csvparse with every role resolved.
var ExportHeader = []string{
	"klasifikasi", "keyword", "full_text", "created_at", "username", "user_id_str",
	"conversation_id_str", "favorite_count", "reply_count", "retweet_count",
	"quote_count", "lang", "location", "tweet_url", "image_url",
}

// WriteCSV writes the original records behind details to w, one row each.
func WriteCSV(w io.Writer, details []tweets.TweetDetail) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, d := range details {
		if err := cw.Write(exportRow(d.Record)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(r tweets.Record) []string {
	return []string{
		r.Classification,
		r.Keyword,
		r.FullText,
		r.CreatedAt,
		r.Username,
		r.UserID,
		r.ConversationID,
		strconv.Itoa(r.FavoriteCount),
		strconv.Itoa(r.ReplyCount),
		strconv.Itoa(r.RetweetCount),
		strconv.Itoa(r.QuoteCount),
		r.Language,
		r.Location,
		r.TweetURL,
		r.ImageURL,
	}
}
