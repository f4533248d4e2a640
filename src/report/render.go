// Package report renders dashboard views for the terminal and exports tweet lists.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tweet-sentiment/src/pipeline"
	"tweet-sentiment/src/tweets"
)

var (
	positiveColor = lipgloss.Color("#8BC34A")
	negativeColor = lipgloss.Color("#e53935")
	promoColor    = lipgloss.Color("#2196F3")
	mutedColor    = lipgloss.Color("#6b7280")
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Title    lipgloss.Style
	Card     lipgloss.Style
	Heading  lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Category map[tweets.Category]lipgloss.Color
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).MarginBottom(1),
		Card:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(30),
		Heading: lipgloss.NewStyle().Bold(true),
		Body:    lipgloss.NewStyle(),
		Muted:   lipgloss.NewStyle().Foreground(mutedColor),
		Category: map[tweets.Category]lipgloss.Color{
			tweets.Positif: positiveColor,
			tweets.Negatif: negativeColor,
			tweets.Promosi: promoColor,
		},
	}
}

// Renderer turns dashboard views into terminal text.
type Renderer struct {
	Styles Styles
	// Tiers, when set, annotates each top keyword with its frequency tier.
	Tiers map[tweets.Category]pipeline.TierResult
}

// NewRenderer returns a renderer with the default styles.
func NewRenderer() *Renderer {
	return &Renderer{Styles: DefaultStyles()}
}

// Dashboard renders the total and one card per category, side by side.
func (r *Renderer) Dashboard(view pipeline.DashboardView) string {
	var sb strings.Builder
	sb.WriteString(r.Styles.Title.Render(fmt.Sprintf("Total tweets: %d", view.TotalTweets)))
	sb.WriteString("\n")

	cards := make([]string, 0, len(view.Categories))
	for _, cs := range view.Categories {
		cards = append(cards, r.card(cs))
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	sb.WriteString("\n")
	return sb.String()
}

func (r *Renderer) card(cs pipeline.CategorySummary) string {
	card := r.Styles.Card
	heading := r.Styles.Heading
	if color, ok := r.Styles.Category[cs.Category]; ok {
		card = card.BorderForeground(color)
		heading = heading.Foreground(color)
	}

	lines := []string{
		heading.Render(string(cs.Category)),
		r.Styles.Body.Render(fmt.Sprintf("%d tweets (%s%%)", cs.Count, formatPercent(cs.Percent))),
		"",
	}
	if len(cs.TopKeywords) == 0 {
		lines = append(lines, r.Styles.Muted.Render("no keywords"))
	}
	tiers, withTiers := r.Tiers[cs.Category]
	for i, kw := range cs.TopKeywords {
		line := fmt.Sprintf("%d. %s (%d)", i+1, kw.Keyword, kw.Count)
		if withTiers {
			if t := tiers.TierOf(kw.Keyword); t >= 0 {
				line += r.Styles.Muted.Render(fmt.Sprintf(" t%d", t))
			}
		}
		lines = append(lines, line)
	}
	return card.Render(strings.Join(lines, "\n"))
}

// TierSummary lists how many keywords landed in each tier of every category.
func (r *Renderer) TierSummary() string {
	if len(r.Tiers) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, c := range tweets.Categories {
		res, ok := r.Tiers[c]
		if !ok {
			continue
		}
		sizes := make([]string, len(res.Tiers))
		for i, tier := range res.Tiers {
			sizes[i] = strconv.Itoa(len(tier))
		}
		sb.WriteString(r.Styles.Heading.Render(string(c)))
		sb.WriteString(r.Styles.Muted.Render(" tiers: " + strings.Join(sizes, " / ")))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Tweets renders a numbered list of tweet details, at most limit entries (all when
// limit <= 0).
func (r *Renderer) Tweets(details []tweets.TweetDetail, limit int) string {
	if limit <= 0 || limit > len(details) {
		limit = len(details)
	}
	var sb strings.Builder
	for i := 0; i < limit; i++ {
		d := details[i]
		sb.WriteString(r.Styles.Heading.Render(fmt.Sprintf("%d. @%s", i+1, d.Username)))
		sb.WriteString(r.Styles.Muted.Render(fmt.Sprintf("  %s  ♥%d ↻%d", d.CreatedAt, d.FavoriteCount, d.RetweetCount)))
		sb.WriteString("\n   ")
		sb.WriteString(r.Styles.Body.Render(d.FullText))
		sb.WriteString("\n")
	}
	if rest := len(details) - limit; rest > 0 {
		sb.WriteString(r.Styles.Muted.Render(fmt.Sprintf("... %d more", rest)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
