package main

import (
	"fmt"
	"io"

	"github.com/goliatone/go-authgate"
	"github.com/goliatone/go-print"
)

type formView struct {
	w io.Writer
}

func (v *formView) RenderForm(state authgate.FormViewState) {
	fmt.Fprintf(v.w, "\n[%s]\n", state.PrimaryLabel)
	if state.ConfirmVisible {
		fmt.Fprintln(v.w, "  fields: email, password, confirm")
	} else {
		fmt.Fprintln(v.w, "  fields: email, password")
	}
	if state.Submitting {
		fmt.Fprintln(v.w, "  ...")
	}
	if state.Error != "" {
		fmt.Fprintf(v.w, "  ! %s\n", state.Error)
	}
	fmt.Fprintf(v.w, "  toggle: %s\n", state.ToggleLabel)
}

type homeView struct {
	w io.Writer
}

func (v *homeView) RenderHome(state authgate.HomeViewState) {
	fmt.Fprintf(v.w, "\n%s\n", state.Welcome)
	fmt.Fprintln(v.w, "  commands: profile, logout, quit")
}

type profileView struct {
	w io.Writer
}

func (v *profileView) RenderProfile(view authgate.ProfileView) {
	fmt.Fprintln(v.w, "\n[Profile]")
	fmt.Fprintf(v.w, "  email:   %s\n", view.Email)
	fmt.Fprintf(v.w, "  user id: %s\n", view.UserID)
	fmt.Fprintln(v.w, "  commands: back, logout")
}

// surface stands in for the embedded web view: it prints what it would load.
type surface struct {
	w io.Writer
}

func (s *surface) Load(target authgate.LaunchTarget) error {
	fmt.Fprintln(s.w, "\nloading web client")
	fmt.Fprintln(s.w, print.MaybePrettyJSON(target))
	return nil
}
