// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/nontawat9304/mali-chat/internal/admin"
	"github.com/nontawat9304/mali-chat/internal/api"
	"github.com/nontawat9304/mali-chat/internal/auth"
	"github.com/nontawat9304/mali-chat/internal/chat"
	"github.com/nontawat9304/mali-chat/internal/config"
	"github.com/nontawat9304/mali-chat/internal/guard"
	"github.com/nontawat9304/mali-chat/internal/model"
	"github.com/nontawat9304/mali-chat/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	assistantStyle = lipgloss.NewStyle().
			Foreground(styles.Purple)

	sourceStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// =============================================================================
// SCREENS
// =============================================================================

// Screen navigation paths. The guard decides who may enter each.
// Teaching has no screen of its own; it is slash commands on chat.
var routes = map[string]guard.Route{
	guard.LoginPath:   {Path: guard.LoginPath},
	guard.DefaultPath: {Path: guard.DefaultPath},
	"/admin":          {Path: "/admin", RequiredRole: model.RoleAdmin},
}

// =============================================================================
// APP
// =============================================================================

// App holds the interactive client's wiring and navigation state.
type App struct {
	Config *config.Config
	Client *api.Client
	Auth   *auth.Store
	Chat   *chat.Router
	Admin  *admin.Service
	Input  *Input

	// current is the active screen path.
	current string

	// returnTo remembers where a login redirect came from, so a
	// successful login resumes there.
	returnTo string

	// muteAudio is the hot-swappable audio default. The config watcher
	// stores through it from its own goroutine while the REPL reads it
	// on every send, so it must not live on the shared Config.
	muteAudio atomic.Bool
}

// NewApp wires the client. The caller owns the collaborators.
func NewApp(cfg *config.Config, client *api.Client, authStore *auth.Store, router *chat.Router, adminSvc *admin.Service, input *Input) *App {
	a := &App{
		Config:  cfg,
		Client:  client,
		Auth:    authStore,
		Chat:    router,
		Admin:   adminSvc,
		Input:   input,
		current: guard.LoginPath,
	}
	a.muteAudio.Store(cfg.MuteAudio)
	return a
}

// SetMuteAudio swaps the audio default at runtime. Safe to call from
// the config watcher's goroutine.
func (a *App) SetMuteAudio(mute bool) {
	a.muteAudio.Store(mute)
}

// MuteAudio reports the current audio default.
func (a *App) MuteAudio() bool {
	return a.muteAudio.Load()
}

// Navigate runs the requested path through the guard and switches
// screens per its decision. Safe to call from the forced-logout
// teardown.
func (a *App) Navigate(path string) {
	route, ok := routes[path]
	if !ok {
		route = guard.Route{Path: path}
	}

	decision := guard.Check(a.Auth.Current(), route)
	switch decision.Action {
	case guard.Allow:
		a.current = path
	case guard.RedirectLogin:
		a.returnTo = decision.ReturnURL
		a.current = decision.RedirectTo
	case guard.RedirectDefault:
		fmt.Println(warningStyle.Render("[Denied] that screen needs the admin role"))
		a.current = decision.RedirectTo
	}
}

// Notify prints a blocking notice. Wired as the API client's notifier
// so the unreachable-backend message lands before teardown.
func (a *App) Notify(message string) {
	fmt.Fprintln(os.Stderr, styles.RenderError(message))
}

// =============================================================================
// RUN LOOP
// =============================================================================

// Run drives the REPL until the user quits or input reaches EOF.
func (a *App) Run(ctx context.Context) error {
	a.Auth.RestoreOnStart()
	a.Navigate(guard.DefaultPath)
	a.printWelcome()

	for {
		input, err := a.Input.ReadLine(a.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				// Ctrl+C on an empty prompt exits.
				fmt.Println()
				return nil
			}
			// EOF (Ctrl+D) or a broken terminal.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		var quit bool
		switch a.current {
		case guard.LoginPath:
			quit, err = a.handleLoginScreen(ctx, input)
		case "/admin":
			quit, err = a.handleAdminScreen(ctx, input)
		default:
			quit, err = a.handleChatScreen(ctx, input)
		}
		if err != nil {
			a.printError(err)
		}
		if quit {
			return nil
		}
	}
}

func (a *App) prompt() string {
	switch a.current {
	case guard.LoginPath:
		return promptStyle.Render("login> ")
	case "/admin":
		return promptStyle.Render("admin> ")
	default:
		name := "mali"
		if s := a.Auth.Current(); s != nil && s.Nickname != "" {
			name = s.Nickname
		}
		return promptStyle.Render(name + "> ")
	}
}

func (a *App) printWelcome() {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("mali-chat"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n", infoStyle.Render("Backend:"), commandStyle.Render(a.Client.BaseURL()))

	if endpoint, ok := a.Chat.RemoteEndpoint(); ok {
		fmt.Printf("%s %s\n", infoStyle.Render("Inference:"), warningStyle.Render(endpoint))
	} else {
		fmt.Printf("%s %s\n", infoStyle.Render("Inference:"), commandStyle.Render("local default model"))
	}

	if s := a.Auth.Current(); s != nil {
		fmt.Printf("%s %s (%s)\n", infoStyle.Render("Session:"), commandStyle.Render(s.Nickname), s.Role)
	} else {
		fmt.Println(infoStyle.Render("Not logged in. Commands: login, register, quit"))
	}
	fmt.Println()
}

func (a *App) printError(err error) {
	switch {
	case errors.Is(err, api.ErrSessionExpired):
		fmt.Fprintln(os.Stderr, styles.RenderWarning("Session expired, please log in again"))
	case errors.Is(err, api.ErrInvalidCredentials):
		fmt.Fprintln(os.Stderr, styles.RenderError("Invalid credentials"))
	case errors.Is(err, api.ErrBackendUnreachable):
		// The notifier already printed the blocking notice.
	default:
		fmt.Fprintln(os.Stderr, styles.RenderError(err.Error()))
	}
}
