package portalcli

import (
	"context"
	"fmt"

	"github.com/talenorix/candidate-portal/internal/filex"
	"github.com/talenorix/candidate-portal/internal/profile"
	"github.com/talenorix/candidate-portal/internal/status"
)

// Commands for the non-synchronizer modules: identity, location, photo.

func (a *App) identity(ctx context.Context) {
	reporter := &status.Log{Module: "identity"}
	id, err := profile.LoadIdentity(ctx, a.client, a.principal.ID, reporter)
	if err != nil {
		return
	}
	fmt.Println("Name: ", id.FullName())
	fmt.Println("Email:", id.Email)
}

func (a *App) locationShow(ctx context.Context) {
	loc := a.tabs.location
	if err := loc.Load(ctx); err != nil {
		return
	}
	fmt.Println("Countries:")
	for _, o := range loc.Countries {
		fmt.Printf("  %s  %s\n", o.Value, o.Label)
	}
	if loc.States.Enabled() {
		fmt.Println("States:")
		for _, o := range loc.States.Options() {
			marker := " "
			if o.Value == loc.States.Selected() {
				marker = "*"
			}
			fmt.Printf(" %s %s  %s\n", marker, o.Value, o.Label)
		}
	}
	fmt.Println("Address:", loc.Address)
}

func (a *App) country(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: country <placeId>")
		return
	}
	if err := a.tabs.location.SelectCountry(ctx, args[0]); err != nil {
		return
	}
	for _, o := range a.tabs.location.States.Options() {
		fmt.Printf("  %s  %s\n", o.Value, o.Label)
	}
}

func (a *App) saveLocation(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: savelocation <countryId> [stateId] [address...]")
		return
	}
	country := args[0]
	state := ""
	address := ""
	if len(args) > 1 {
		state = args[1]
	}
	if len(args) > 2 {
		for i, p := range args[2:] {
			if i > 0 {
				address += " "
			}
			address += p
		}
	}
	_ = a.tabs.location.Save(ctx, country, state, address)
}

func (a *App) photoUpload(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: photo <file>")
		return
	}
	data, contentType, err := filex.ReadForUpload(args[0])
	if err != nil {
		fmt.Println("Cannot read file:", err.Error())
		return
	}
	if _, err := a.tabs.photo.Upload(ctx, data, contentType); err != nil {
		return
	}
	if url, err := a.tabs.photo.SignedURL(ctx); err == nil && url != "" {
		fmt.Println("Preview:", url)
	}
}

func (a *App) photoURL(ctx context.Context) {
	url, err := a.tabs.photo.SignedURL(ctx)
	if err == nil && url != "" {
		fmt.Println(url)
	}
}

func (a *App) photoRemove(ctx context.Context) {
	_ = a.tabs.photo.Remove(ctx)
}
