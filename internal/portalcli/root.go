package portalcli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.principal != nil {
		s = a.principal.Email
		if a.tabs != nil && a.tabs.current != "" {
			s += " " + a.tabs.current
		}
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root runs the command loop until EOF or exit.
func (a *App) Root(ctx context.Context) {
	fmt.Println("Candidate Portal CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("portal %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			a.help()
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "logout":
			if a.requireLogin() {
				_ = a.Logout(ctx)
			}
		case "tabs":
			if a.requireLogin() {
				fmt.Println("Tabs:", strings.Join(a.tabs.names(), ", "), "+ identity, location, photo")
			}
		case "tab":
			if a.requireLogin() {
				if len(args) == 0 {
					fmt.Println("Usage: tab <name>")
					continue
				}
				a.openTab(ctx, args[0])
			}
		case "list":
			if a.requireLogin() {
				a.list(ctx)
			}
		case "add":
			if a.requireLogin() {
				a.add()
			}
		case "set":
			if a.requireLogin() {
				a.set(args)
			}
		case "save":
			if a.requireLogin() {
				a.save(ctx)
			}
		case "del":
			if a.requireLogin() {
				a.del(ctx, args)
			}
		case "identity":
			if a.requireLogin() {
				a.identity(ctx)
			}
		case "location":
			if a.requireLogin() {
				a.locationShow(ctx)
			}
		case "country":
			if a.requireLogin() {
				a.country(ctx, args)
			}
		case "savelocation":
			if a.requireLogin() {
				a.saveLocation(ctx, args)
			}
		case "photo":
			if a.requireLogin() {
				a.photoUpload(ctx, args)
			}
		case "photourl":
			if a.requireLogin() {
				a.photoURL(ctx)
			}
		case "rmphoto":
			if a.requireLogin() {
				a.photoRemove(ctx)
			}
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}

func (a *App) help() {
	if a.isLoggedIn() {
		fmt.Println("Available commands: tabs, tab <name>, list, add, set <i> <field> <value>, save, del <i>,")
		fmt.Println("  identity, location, country <id>, savelocation <countryId> [stateId] [address],")
		fmt.Println("  photo <file>, photourl, rmphoto, logout, exit")
	} else {
		fmt.Println("Available commands: register, login, exit")
	}
}

func (a *App) requireLogin() bool {
	if !a.isLoggedIn() {
		fmt.Println("Log in first.")
		return false
	}
	return true
}

func (a *App) openTab(ctx context.Context, name string) {
	a.tabs.open(ctx, name)
	if a.tabs.current == name {
		a.state.SetActiveTab(name)
	}
}

func (a *App) activeTab() *tab {
	t := a.tabs.active()
	if t == nil {
		fmt.Println("Open a tab first: tab <name>")
	}
	return t
}

func (a *App) list(ctx context.Context) {
	if t := a.activeTab(); t != nil {
		_ = t.sync.Load(ctx)
		a.tabs.printStatus()
	}
}

func (a *App) add() {
	if t := a.activeTab(); t != nil {
		t.sync.Add()
		a.tabs.printStatus()
	}
}

func (a *App) set(args []string) {
	t := a.activeTab()
	if t == nil {
		return
	}
	if len(args) < 2 {
		fmt.Println("Usage: set <index> <field> <value...>")
		return
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 0 || idx >= len(t.sync.Records()) {
		fmt.Println("No item at index:", args[0])
		return
	}
	field := args[1]
	if !contains(t.fields, field) {
		fmt.Println("Unknown field. Editable:", strings.Join(t.fields, ", "))
		return
	}
	value := strings.Join(args[2:], " ")

	rec := t.sync.Records()[idx]
	if field == "is_current" {
		rec.Set(field, value == "true" || value == "y" || value == "1")
	} else {
		rec.Set(field, value)
	}
}

func (a *App) save(ctx context.Context) {
	if t := a.activeTab(); t != nil {
		_ = t.sync.Save(ctx)
		a.tabs.printStatus()
	}
}

func (a *App) del(ctx context.Context, args []string) {
	t := a.activeTab()
	if t == nil {
		return
	}
	if len(args) == 0 {
		fmt.Println("Usage: del <index>")
		return
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("No item at index:", args[0])
		return
	}
	_ = t.sync.Delete(ctx, idx)
	a.tabs.printStatus()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
