package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/application"
	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const seatBarWidth = 16

type RenderOptions struct {
	Now time.Time
}

// Render draws the session status of this device.
func Render(status application.Status, opts RenderOptions) string {
	return renderStatus(status, opts, newStyles())
}

// RenderAccounts draws the account catalog and marks the active account.
func RenderAccounts(accounts []domain.Account, current domain.AccountID) string {
	return renderAccounts(accounts, current, newStyles())
}

func renderStatus(status application.Status, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Cookie Account Session")}

	if !status.LoggedIn {
		lines = append(lines, s.warning.Render("not logged in: run `ca login`"))
	} else {
		lines = append(lines, s.header.Render(fmt.Sprintf("user: %s  device: %s", status.User.Email, shortID(status.DeviceID))))
	}

	if status.Current == nil {
		lines = append(lines, s.section.Render(s.empty.Render("No active account.")))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(renderCurrent(status, opts, s)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderCurrent(status application.Status, opts RenderOptions, s styles) string {
	current := status.Current
	parts := []string{
		s.current.Render(accountTitle(current.Account)),
		s.key.Render("domains:") + " " + s.detail.Render(domainList(status.Managed)),
		s.key.Render("active since:") + " " + s.detail.Render(formatSince(current.AppliedAt, opts.Now)),
	}

	switch {
	case status.Remote != nil:
		parts = append(parts, seatLine(*status.Remote, s))
	case status.RemoteErr != nil:
		parts = append(parts, s.warning.Render("registry: "+status.RemoteErr.Error()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderAccounts(accounts []domain.Account, current domain.AccountID, s styles) string {
	lines := []string{
		s.title.Render("Accounts"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(accounts))),
	}

	if len(accounts) == 0 {
		lines = append(lines, s.empty.Render("No accounts available."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, account := range accounts {
		title := s.account.Render("  " + accountTitle(account))
		if account.ID == current {
			title = s.current.Render("* " + accountTitle(account))
		}
		meta := s.meta.Render(fmt.Sprintf("    domains: %s  seats: %s", domainList(domain.DomainsOf(account)), seatsLabel(account.MaxConcurrentUsers)))
		lines = append(lines, lipgloss.JoinVertical(lipgloss.Left, title, meta))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func seatLine(info domain.SessionInfo, s styles) string {
	label := s.key.Render("seats:")
	if info.MaxConcurrentUsers <= 0 {
		return label + " " + s.detail.Render(fmt.Sprintf("%d in use", info.ActiveSessions))
	}

	usedPercent := 100 * float64(info.ActiveSessions) / float64(info.MaxConcurrentUsers)
	countStyle := lipgloss.NewStyle().Foreground(interpolateColor(100-clampPercent(usedPercent), 0, 100))
	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		label,
		" ",
		renderSeatBar(usedPercent, seatBarWidth, s),
		" ",
		countStyle.Render(fmt.Sprintf("%d/%d in use", info.ActiveSessions, info.MaxConcurrentUsers)),
	)
	if info.Exceeded() {
		line += " " + s.warning.Render("[over capacity]")
	}

	return line
}

func renderSeatBar(usedPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(usedPercent) / 100.0))
	filled = min(max(filled, 0), width)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func accountTitle(account domain.Account) string {
	return fmt.Sprintf("%s (%s)", account.DisplayName(), account.ID)
}

func domainList(domains domain.ManagedDomains) string {
	if len(domains) == 0 {
		return "none"
	}
	return strings.Join(domains, ", ")
}

func seatsLabel(maxUsers int) string {
	if maxUsers <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d max", maxUsers)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "none"
	}
	return id
}

func formatSince(appliedAt, now time.Time) string {
	if appliedAt.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return appliedAt.Format(time.RFC3339)
	}

	elapsed := now.Sub(appliedAt)
	switch {
	case elapsed < time.Minute:
		return fmt.Sprintf("%s (just now)", appliedAt.Format("15:04"))
	case elapsed < time.Hour:
		return fmt.Sprintf("%s (%d min ago)", appliedAt.Format("15:04"), int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		hours := int(elapsed.Hours())
		suffix := "hours"
		if hours == 1 {
			suffix = "hour"
		}
		return fmt.Sprintf("%s (%d %s ago)", appliedAt.Format("15:04"), hours, suffix)
	default:
		return appliedAt.Format("15:04 on 02 Jan")
	}
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale: 240 faded at min, 255 bright at max.
	colorCode := int(240.0 + (255.0-240.0)*normalized)
	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
