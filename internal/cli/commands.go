// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nontawat9304/mali-chat/internal/guard"
	"github.com/nontawat9304/mali-chat/internal/model"
	"github.com/nontawat9304/mali-chat/internal/ui/styles"
	"github.com/nontawat9304/mali-chat/internal/util"
)

// =============================================================================
// LOGIN SCREEN
// =============================================================================

// handleLoginScreen processes input while logged out. Returns
// (quit, error).
func (a *App) handleLoginScreen(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)
	switch strings.ToLower(parts[0]) {
	case "login", "l":
		return false, a.doLogin(ctx, parts[1:])

	case "register", "r":
		return false, a.doRegister(ctx)

	case "quit", "q", "exit":
		return true, nil

	case "help", "h", "?":
		fmt.Println(infoStyle.Render("Commands: login [email], register, quit"))
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s (type help)", parts[0])
	}
}

func (a *App) doLogin(ctx context.Context, args []string) error {
	var identifier string
	if len(args) > 0 {
		identifier = args[0]
	} else {
		line, err := a.Input.ReadLine("email: ")
		if err != nil {
			return err
		}
		identifier = strings.TrimSpace(line)
	}

	password, err := a.Input.ReadPassword("password: ")
	if err != nil {
		return err
	}

	session, err := a.Auth.Login(ctx, identifier, password)
	if err != nil {
		return err
	}

	fmt.Println(styles.RenderSuccess("Welcome back, " + session.Nickname))

	// Resume where the login redirect came from, or land on chat.
	target := a.returnTo
	a.returnTo = ""
	if target == "" {
		target = guard.DefaultPath
	}
	a.Navigate(target)
	return nil
}

func (a *App) doRegister(ctx context.Context) error {
	email, err := a.Input.ReadLine("email: ")
	if err != nil {
		return err
	}
	nickname, err := a.Input.ReadLine("nickname: ")
	if err != nil {
		return err
	}
	password, err := a.Input.ReadPassword("password: ")
	if err != nil {
		return err
	}

	if err := a.Auth.Register(ctx, strings.TrimSpace(email), password, strings.TrimSpace(nickname)); err != nil {
		return err
	}
	fmt.Println(styles.RenderSuccess("Account created, you can log in now"))
	return nil
}

// =============================================================================
// CHAT SCREEN
// =============================================================================

// handleChatScreen processes input on the chat screen. Plain text is a
// chat message; slash commands reach everything else.
func (a *App) handleChatScreen(ctx context.Context, input string) (bool, error) {
	if strings.HasPrefix(input, "/") {
		return a.handleSlashCommand(ctx, input)
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return true, nil
	}
	return false, a.sendMessage(ctx, input)
}

func (a *App) sendMessage(ctx context.Context, text string) error {
	muted := a.muteAudio.Load()
	reply, err := a.Chat.Send(ctx, text, muted)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(assistantStyle.Render(reply.Reply))
	if reply.ModelSource != "" {
		fmt.Println(sourceStyle.Render("  via " + reply.ModelSource))
	}
	if !muted && reply.AudioURL != "" {
		fmt.Println(audioReplyLine(a.Client.BaseURL(), reply.AudioURL))
	}
	fmt.Println()
	return nil
}

// audioReplyLine points at the spoken version of a reply. The backend
// reports the URL relative to itself.
func audioReplyLine(baseURL, audioURL string) string {
	if strings.HasPrefix(audioURL, "/") {
		audioURL = baseURL + audioURL
	}
	return sourceStyle.Render("  voice reply: " + audioURL)
}

// handleSlashCommand processes slash commands on the chat screen.
// Returns (quit, error).
func (a *App) handleSlashCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		a.printChatHelp()
		return false, nil

	case "/clear", "/c":
		a.Chat.Clear()
		fmt.Println(commandStyle.Render("[Conversation cleared]"))
		return false, nil

	case "/history":
		a.printTranscript()
		return false, nil

	case "/whoami":
		if s := a.Auth.Current(); s != nil {
			fmt.Printf("%s %s (%s)\n", infoStyle.Render("[Session]"), commandStyle.Render(s.Nickname), s.Role)
		}
		return false, nil

	case "/teach":
		return false, a.doTeach(ctx, args)

	case "/teach-file":
		return false, a.doTeachFile(ctx, args)

	case "/memories":
		return false, a.printTrainingHistory(ctx)

	case "/forget":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /forget <filename>")
		}
		if err := a.Chat.Forget(ctx, args[0]); err != nil {
			return false, err
		}
		fmt.Println(styles.RenderSuccess("Forgot " + args[0]))
		return false, nil

	case "/download":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /download <filename>")
		}
		return false, a.doDownload(ctx, args[0])

	case "/persona":
		return false, a.doPersona(ctx, args)

	case "/remote":
		return false, a.doRemote(args)

	case "/admin":
		a.Navigate("/admin")
		return false, nil

	case "/logout":
		a.Auth.Logout()
		fmt.Println(infoStyle.Render("[Logged out]"))
		return false, nil

	case "/quit", "/q", "/exit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command: %s (type /help)", command)
	}
}

func (a *App) doTeach(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: /teach [global] <text>")
	}
	scope := model.ScopeSelf
	if strings.EqualFold(args[0], "global") {
		scope = model.ScopeGlobal
		args = args[1:]
	}
	text := strings.Join(args, " ")
	if text == "" {
		return fmt.Errorf("usage: /teach [global] <text>")
	}
	if err := a.Chat.TrainText(ctx, "typed note", text, scope); err != nil {
		return err
	}
	fmt.Println(styles.RenderSuccess("Taught (" + string(scope) + " scope)"))
	return nil
}

func (a *App) doTeachFile(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: /teach-file <path> [global]")
	}
	scope := model.ScopeSelf
	if len(args) > 1 && strings.EqualFold(args[1], "global") {
		scope = model.ScopeGlobal
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	if err := a.Chat.UploadFile(ctx, filepath.Base(args[0]), f, scope); err != nil {
		return err
	}
	fmt.Println(styles.RenderSuccess("Uploaded " + filepath.Base(args[0]) + " (" + string(scope) + " scope)"))
	return nil
}

func (a *App) printTrainingHistory(ctx context.Context) error {
	records, err := a.Chat.GetHistory(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println(infoStyle.Render("[Nothing taught yet]"))
		return nil
	}
	for _, rec := range records {
		scope := rec.Scope
		if scope == "" {
			scope = model.ScopeSelf
		}
		fmt.Printf("  %s  %s  %s\n",
			commandStyle.Render(rec.Filename),
			infoStyle.Render(rec.Status),
			sourceStyle.Render(string(scope)))
	}
	return nil
}

func (a *App) doDownload(ctx context.Context, name string) error {
	data, err := a.Chat.Download(ctx, name)
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	fmt.Println(styles.RenderSuccess(fmt.Sprintf("Saved %s (%d bytes)", name, len(data))))
	return nil
}

func (a *App) doPersona(ctx context.Context, args []string) error {
	if len(args) == 0 {
		persona, err := a.Chat.GetPersona(ctx)
		if err != nil {
			return err
		}
		fmt.Println(infoStyle.Render("[Persona]"))
		fmt.Println(persona)
		return nil
	}
	if err := a.Chat.UpdatePersona(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	fmt.Println(styles.RenderSuccess("Persona updated"))
	return nil
}

func (a *App) doRemote(args []string) error {
	if len(args) == 0 {
		if endpoint, ok := a.Chat.RemoteEndpoint(); ok {
			fmt.Printf("%s %s\n", infoStyle.Render("[Inference]"), warningStyle.Render(endpoint))
		} else {
			fmt.Printf("%s %s\n", infoStyle.Render("[Inference]"), commandStyle.Render("local default model"))
		}
		return nil
	}

	if strings.EqualFold(args[0], "reset") {
		if err := a.Chat.ResetRemoteEndpoint(); err != nil {
			return err
		}
		fmt.Println(styles.RenderSuccess("Back to the local default model"))
		return nil
	}

	if err := a.Chat.SetRemoteEndpoint(args[0]); err != nil {
		return err
	}
	fmt.Println(styles.RenderSuccess("Inference now goes through " + args[0]))
	return nil
}

func (a *App) printTranscript() {
	msgs := a.Chat.Messages()
	if len(msgs) == 0 {
		fmt.Println(infoStyle.Render("[No messages yet]"))
		return
	}
	for i, msg := range msgs {
		text := strings.ReplaceAll(util.TruncateRunes(msg.Text, 100), "\n", " ")
		fmt.Printf("  %d. %s: %s\n", i+1, commandStyle.Render(msg.Role.DisplayName()), text)
	}
}

func (a *App) printChatHelp() {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("Commands"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/clear, /c", "Clear the conversation"},
		{"/history", "Show the transcript"},
		{"/teach [global] <text>", "Teach Mali from typed text"},
		{"/teach-file <path>", "Teach Mali from a file"},
		{"/memories", "List what Mali has been taught"},
		{"/forget <file>", "Remove a taught item"},
		{"/download <file>", "Save a taught file locally"},
		{"/persona [text]", "Show or change Mali's persona"},
		{"/remote [url|reset]", "Route inference through a remote endpoint"},
		{"/admin", "Open the admin screen"},
		{"/whoami", "Show the current session"},
		{"/logout", "Log out"},
		{"/quit, /q", "Exit"},
	}
	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-24s", c.cmd)),
			infoStyle.Render(c.desc))
	}
	fmt.Println()
}

// =============================================================================
// ADMIN SCREEN
// =============================================================================

// handleAdminScreen processes input on the admin screen. Returns
// (quit, error).
func (a *App) handleAdminScreen(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "users", "ls":
		return false, a.printUsers(ctx)

	case "activate", "deactivate":
		id, err := parseUserID(args)
		if err != nil {
			return false, err
		}
		if err := a.Admin.SetActive(ctx, id, command == "activate"); err != nil {
			return false, err
		}
		fmt.Println(styles.RenderSuccess("Updated user " + strconv.FormatInt(id, 10)))
		return false, nil

	case "role":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: role <id> <user|admin>")
		}
		id, err := parseUserID(args)
		if err != nil {
			return false, err
		}
		if err := a.Admin.SetRole(ctx, id, model.AccountRole(args[1])); err != nil {
			return false, err
		}
		fmt.Println(styles.RenderSuccess("Updated user " + strconv.FormatInt(id, 10)))
		return false, nil

	case "delete", "rm":
		id, err := parseUserID(args)
		if err != nil {
			return false, err
		}
		confirm, err := a.Input.ReadLine(warningStyle.Render("Delete user " + strconv.FormatInt(id, 10) + "? [y/N] "))
		if err != nil {
			return false, err
		}
		if !strings.EqualFold(strings.TrimSpace(confirm), "y") {
			fmt.Println(infoStyle.Render("[Cancelled]"))
			return false, nil
		}
		if err := a.Admin.DeleteUser(ctx, id); err != nil {
			return false, err
		}
		fmt.Println(styles.RenderSuccess("Deleted user " + strconv.FormatInt(id, 10)))
		return false, nil

	case "back", "chat":
		a.Navigate(guard.DefaultPath)
		return false, nil

	case "help", "h", "?":
		fmt.Println(infoStyle.Render("Commands: users, activate <id>, deactivate <id>, role <id> <user|admin>, delete <id>, back, quit"))
		return false, nil

	case "quit", "q", "exit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command: %s (type help)", command)
	}
}

func (a *App) printUsers(ctx context.Context) error {
	users, err := a.Admin.ListUsers(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  %-5s %-28s %-16s %-6s %s\n", "ID", "EMAIL", "NICKNAME", "ROLE", "ACTIVE")
	for _, u := range users {
		active := "yes"
		if !u.IsActive {
			active = warningStyle.Render("no")
		}
		fmt.Printf("  %-5d %-28s %-16s %-6s %s\n", u.ID, u.Email, u.Nickname, u.Role, active)
	}
	return nil
}

func parseUserID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("a user id is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", args[0])
	}
	return id, nil
}
