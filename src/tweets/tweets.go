package tweets

// Category is one of the fixed classification labels a tweet can be bucketed into.
type Category string

const (
	Positif Category = "Positif"
	Negatif Category = "Negatif"
	Promosi Category = "Promosi"
)

// Categories lists the fixed labels in dashboard order.
var Categories = []Category{Positif, Negatif, Promosi}

// ParseCategory reports whether label is exactly one of the fixed categories.
func ParseCategory(label string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == label {
			return c, true
		}
	}
	return "", false
}

// Unknown is shown for missing username and created_at values.
const Unknown = "Unknown"

// Record represents one parsed data row of the export.
// Fields whose column is absent from the header stay at their zero value.
type Record struct {
	Classification string `json:"classification"`
	Keyword        string `json:"keyword"`
	FullText       string `json:"fullText"`
	CreatedAt      string `json:"createdAt"`
	Username       string `json:"username"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	FavoriteCount  int    `json:"favoriteCount"`
	ReplyCount     int    `json:"replyCount"`
	RetweetCount   int    `json:"retweetCount"`
	QuoteCount     int    `json:"quoteCount"`
	Language       string `json:"language"`
	Location       string `json:"location"`
	TweetURL       string `json:"tweetUrl"`
	ImageURL       string `json:"imageUrl"`
}

// TweetDetail is the dashboard projection of a Record.
type TweetDetail struct {
	FullText      string `json:"fullText"`
	Username      string `json:"username"`
	CreatedAt     string `json:"createdAt"`
	FavoriteCount int    `json:"favoriteCount"`
	RetweetCount  int    `json:"retweetCount"`
	ReplyCount    int    `json:"replyCount"`
	Keyword       string `json:"keyword"`
	TweetURL      string `json:"tweetUrl"`

	// Record is a copy of the source row, kept for lossless export.
	Record Record `json:"originalData"`
}

// Detail projects r into a TweetDetail, substituting Unknown for a missing
// username or creation time.
func (r Record) Detail() TweetDetail {
	return TweetDetail{
		FullText:      r.FullText,
		Username:      orUnknown(r.Username),
		CreatedAt:     orUnknown(r.CreatedAt),
		FavoriteCount: r.FavoriteCount,
		RetweetCount:  r.RetweetCount,
		ReplyCount:    r.ReplyCount,
		Keyword:       r.Keyword,
		TweetURL:      r.TweetURL,
		Record:        r,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
