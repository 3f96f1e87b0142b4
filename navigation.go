package authgate

// Screen identifies a shell screen.
type Screen string

const (
	ScreenNone          Screen = ""
	ScreenCredential    Screen = "credential"
	ScreenAuthenticated Screen = "authenticated"
	ScreenProfile       Screen = "profile"
)

// Navigator moves the shell between screens.
type Navigator interface {
	Navigate(to Screen) error
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(to Screen) error

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(to Screen) error {
	if f == nil {
		return nil
	}
	return f(to)
}

// NavigationAction describes what a transition does to the screen stack.
type NavigationAction string

const (
	// NavLaunch starts the stack with the target screen.
	NavLaunch NavigationAction = "launch"
	// NavReplace finishes the current screen and starts the target.
	NavReplace NavigationAction = "replace"
	// NavPush keeps the current screen underneath the target.
	NavPush NavigationAction = "push"
	// NavPop finishes the current screen and returns to the one below.
	NavPop NavigationAction = "pop"
	// NavReset discards the whole stack and starts the target.
	NavReset NavigationAction = "reset"
)

type navigationGraph map[Screen]map[Screen]NavigationAction

func defaultNavigationGraph() navigationGraph {
	return navigationGraph{
		ScreenNone: {
			ScreenCredential:    NavLaunch,
			ScreenAuthenticated: NavLaunch,
		},
		ScreenCredential: {
			ScreenAuthenticated: NavReplace,
		},
		ScreenAuthenticated: {
			ScreenProfile:    NavPush,
			ScreenCredential: NavReplace,
		},
		ScreenProfile: {
			ScreenAuthenticated: NavPop,
			ScreenCredential:    NavReset,
		},
	}
}

func (g navigationGraph) action(from, to Screen) (NavigationAction, bool) {
	if allowed, ok := g[from]; ok {
		action, exists := allowed[to]
		return action, exists
	}
	return "", false
}
