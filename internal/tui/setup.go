package tui

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/coachdesk/config"
)

// RunSetup asks for the connection settings and writes them as a yaml config to path.
func RunSetup(path string) error {
	var (
		env         = string(config.EnvDevelopment)
		apiURL      string
		pageSizeStr = "10"
		debounceStr = "300ms"
		addr        = "127.0.0.1:8090"
		confirm     bool
	)

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("COACHDESK SETUP"))
	fmt.Println(mutedStyle.Render("Point the client at your institute backend.\n"))

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Environment").
				Options(
					huh.NewOption("Development (local backend)", string(config.EnvDevelopment)),
					huh.NewOption("Production", string(config.EnvProduction)),
				).
				Value(&env),
			huh.NewInput().
				Title("Backend API URL").
				Description("Leave empty for the environment default").
				Value(&apiURL),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Rows per page").
				Value(&pageSizeStr).
				Validate(validatePageSize),
			huh.NewInput().
				Title("Search delay").
				Description("Duration string (e.g. 300ms)").
				Value(&debounceStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewInput().
				Title("Dashboard address").
				Value(&addr),
		),
	).Run()
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("Env: %s\nAPI: %s\nPage size: %s\nSearch delay: %s\nDashboard: %s\n",
		env, orDefault(apiURL, "(default)"), pageSizeStr, debounceStr, addr)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	debounceDelay, _ := time.ParseDuration(debounceStr)
	data, err := SetupYAML(config.ConfigTmp{
		Env:            env,
		APIURL:         apiURL,
		PageSizeStr:    pageSizeStr,
		SearchDebounce: debounceDelay,
		DashboardAddr:  addr,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(okStyle.Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	return nil
}

// SetupYAML encodes the wizard answers.
func SetupYAML(tmp config.ConfigTmp) ([]byte, error) {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to generate yaml: %w", err)
	}
	return data, nil
}

func validatePageSize(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n < 1 || n > 100 {
		return fmt.Errorf("must be between 1 and 100")
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
