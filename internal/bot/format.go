package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/azubrytski-dev/challange-bot/internal/config"
	"github.com/azubrytski-dev/challange-bot/internal/model"
)

// userLabel renders "Name (@username)" with HTML escaping, or just the
// escaped name when the account has no username.
func userLabel(displayName, username string) string {
	if username != "" {
		return fmt.Sprintf("%s (@%s)", html.EscapeString(displayName), html.EscapeString(username))
	}

	return html.EscapeString(displayName)
}

// mention builds a tg://user deep link, which notifies the user even
// without a username. Valid in HTML parse mode only.
func mention(userID int64, displayName string) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, html.EscapeString(displayName))
}

// formatTop renders the ranking board in the chat's language.
func formatTop(lang string, rows []model.TopRow) string {
	if len(rows) == 0 {
		return message(lang, msgTopEmpty)
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, message(lang, msgTopHeader))

	for _, r := range rows {
		label := userLabel(r.DisplayName, r.Username)
		lines = append(lines, fmt.Sprintf(message(lang, msgTopRow),
			r.Rank, label, r.Points, r.Circles, r.Reactions))
	}

	return strings.Join(lines, "\n")
}

// formatZeroPing renders the callout for users with no activity. Returns
// false when there is nobody to call out.
func formatZeroPing(lang string, zeroUsers []model.UserStats, criteria string) (string, bool) {
	if len(zeroUsers) == 0 {
		return "", false
	}

	reason := message(lang, msgZeroPoints)
	if criteria == model.ZeroCriteriaCircles {
		reason = message(lang, msgZeroCircles)
	}

	mentions := make([]string, 0, len(zeroUsers))
	for _, u := range zeroUsers {
		mentions = append(mentions, mention(u.UserID, u.DisplayName))
	}

	return fmt.Sprintf(message(lang, msgZeroPing), reason, strings.Join(mentions, ", ")), true
}

// formatUserStats renders a single user's numbers.
func formatUserStats(lang string, stats model.UserStats) string {
	label := userLabel(stats.DisplayName, stats.Username)

	return fmt.Sprintf(message(lang, msgUserStats), label, stats.Points, stats.Circles, stats.Reactions)
}

// formatRules renders the effective scoring configuration.
func formatRules(lang string, cfg *config.Config) string {
	return fmt.Sprintf(message(lang, msgRules),
		cfg.PointsPerCircle,
		cfg.PointsPerReaction,
		cfg.RatingInterval,
		cfg.ZeroCriteria,
		cfg.ZeroPingLimit,
		cfg.TopLimit,
	)
}
