package view

// Screen is the view currently shown to the user.
type Screen int

const (
	Menu Screen = iota
	ReportForm
	List
	Heatmap
)

var screenNames = [...]string{
	Menu:       "main_menu",
	ReportForm: "report",
	List:       "view_all",
	Heatmap:    "heatmap",
}

func (s Screen) String() string {
	if s < 0 || int(s) >= len(screenNames) {
		return "unknown"
	}
	return screenNames[s]
}

// ParseScreen maps a screen name to its Screen.
func ParseScreen(name string) (Screen, bool) {
	for i, n := range screenNames {
		if n == name {
			return Screen(i), true
		}
	}
	return Menu, false
}
