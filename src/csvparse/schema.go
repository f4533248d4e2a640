package csvparse

import (
	"fmt"
	"strings"
)

// Role is the semantic purpose a CSV column may serve.
type Role int

const (
	Classification Role = iota
	Keyword
	FullText
	CreatedAt
	Username
	UserID
	ConversationID
	FavoriteCount
	ReplyCount
	RetweetCount
	QuoteCount
	Language
	Location
	TweetURL
	ImageURL

	numRoles
)

var roleNames = [numRoles]string{
	"classification", "keyword", "fullText", "createdAt", "username", "userId",
	"conversationId", "favoriteCount", "replyCount", "retweetCount", "quoteCount",
	"language", "location", "tweetUrl", "imageUrl",
}

func (r Role) String() string {
	if r < 0 || r >= numRoles {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

// Absent marks a role with no matching header column.
const Absent = -1

// roleRule lists, in priority order, the lowercase substrings that identify a role.
// Headers containing any of exclude never match the rule.
type roleRule struct {
	role       Role
	candidates []string
	exclude    []string
}

// Header candidates per role. Earlier candidates win over later ones regardless of
// column position, so exact export names come before the loose fallbacks.
var roleRules = []roleRule{
	{role: Classification, candidates: []string{"klasifikasi", "classification", "sentiment", "category", "label"}},
	{role: Keyword, candidates: []string{"keyword", "key_word", "term", "phrase", "kata kunci", "kata_kunci", "topic", "topik"}},
	{role: FullText, candidates: []string{"full_text", "text", "content", "message"}},
	{role: CreatedAt, candidates: []string{"created_at", "created"}},
	{role: Username, candidates: []string{"username", "user"}, exclude: []string{"user_id"}},
	{role: UserID, candidates: []string{"user_id", "userid"}},
	{role: ConversationID, candidates: []string{"conversation_id", "conversation"}},
	{role: FavoriteCount, candidates: []string{"favorite_count", "favorite"}},
	{role: ReplyCount, candidates: []string{"reply_count", "reply"}},
	{role: RetweetCount, candidates: []string{"retweet_count", "retweet"}},
	{role: QuoteCount, candidates: []string{"quote_count", "quote"}},
	{role: Language, candidates: []string{"lang"}},
	{role: Location, candidates: []string{"location"}},
	{role: TweetURL, candidates: []string{"tweet_url", "url", "link"}, exclude: []string{"image"}},
	{role: ImageURL, candidates: []string{"image_url", "image"}},
}

// ColumnRoleMap maps every role to a 0-based header index or Absent.
// It is a value type; copies never alias.
type ColumnRoleMap struct {
	index [numRoles]int
}

// Index returns the header index for role, or Absent.
func (m ColumnRoleMap) Index(role Role) int {
	if role < 0 || role >= numRoles {
		return Absent
	}
	return m.index[role]
}

// Has reports whether role resolved to a column.
func (m ColumnRoleMap) Has(role Role) bool {
	return m.Index(role) != Absent
}

// Roles returns the resolved roles and their indexes, for logging.
func (m ColumnRoleMap) Roles() map[string]int {
	out := make(map[string]int)
	for r := Role(0); r < numRoles; r++ {
		if m.index[r] != Absent {
			out[r.String()] = m.index[r]
		}
	}
	return out
}

// InferRoles maps header fields to roles by case-insensitive substring matching.
// It fails with ErrSchema when the classification role cannot be resolved; every
// other role silently defaults to Absent.
func InferRoles(header []string) (ColumnRoleMap, error) {
	lowered := make([]string, len(header))
	for i, h := range header {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var m ColumnRoleMap
	for i := range m.index {
		m.index[i] = Absent
	}
	for _, rule := range roleRules {
		m.index[rule.role] = resolve(lowered, rule)
	}

	if m.index[Classification] == Absent {
		return m, fmt.Errorf("%w (headers: %s)", ErrSchema, strings.Join(header, ", "))
	}
	return m, nil
}

// resolve returns the index of the first header containing the highest-priority
// candidate that matches anything at all.
func resolve(lowered []string, rule roleRule) int {
	for _, cand := range rule.candidates {
		for i, h := range lowered {
			if strings.Contains(h, cand) && !containsAny(h, rule.exclude) {
				return i
			}
		}
	}
	return Absent
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
