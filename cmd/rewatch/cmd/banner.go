package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/corey/rewatch/internal/config"
)

var (
	bannerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	bannerLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// printBanner shows the effective setup once at startup, before log
// output takes over.
func printBanner(cfg *config.Config) {
	line := func(label, value string) {
		fmt.Printf("  %s %s\n", bannerLabelStyle.Render(fmt.Sprintf("%-9s", label)), value)
	}

	fmt.Println(bannerTitleStyle.Render("rewatch"))
	line("root", cfg.Root)
	if cfg.NoRun {
		line("command", "(disabled)")
	} else {
		line("command", cfg.CommandLine())
	}
	if len(cfg.Extensions) > 0 {
		line("ext", strings.Join(cfg.Extensions, " "))
	} else {
		line("ext", "(all files)")
	}
	if len(cfg.IgnoreDirs) > 0 {
		line("ignoring", strings.Join(cfg.IgnoreDirs, " "))
	}
	timing := fmt.Sprintf("debounce %s, grace %s", cfg.Debounce, cfg.Grace)
	if cfg.Poll {
		timing += fmt.Sprintf(", poll every %s", cfg.PollInterval)
	}
	line("timing", timing)
	fmt.Println()
}
