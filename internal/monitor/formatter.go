package monitor

import "fmt"

// FormatPercentage formats a ratio (0-1) as percentage
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// FormatScore formats a preservation score out of 100.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.0f/100", score)
}

// FormatSize formats a character count as "X chars", "X.Xk chars" or
// "X.XM chars".
func FormatSize(chars int) string {
	switch {
	case chars >= 1_000_000:
		return fmt.Sprintf("%.1fM chars", float64(chars)/1_000_000)
	case chars >= 1_000:
		return fmt.Sprintf("%.1fk chars", float64(chars)/1_000)
	default:
		return fmt.Sprintf("%d chars", chars)
	}
}

// FormatDuration formats duration in seconds to "Xh Ym", "Xm Ys" or "Xs"
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
