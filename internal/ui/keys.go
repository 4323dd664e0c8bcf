package ui

// Intent is a user action requested from the keyboard
type Intent int

const (
	IntentNone Intent = iota
	IntentQuit
	IntentCapture
	IntentToggleMode
	IntentToggleFilters
	IntentNextSticker
	IntentNextPreset
	IntentResetParams
	IntentSwitchCamera
	IntentDismissCapture
)

// KeyHelp lists the keyboard shortcuts for the startup banner
const KeyHelp = "q quit  c capture  m mode  f filters  n sticker  p preset  r reset  s switch camera  x dismiss"

// IntentForKey maps a WaitKey code to an intent
func IntentForKey(key int) Intent {
	switch key {
	case 'q', 27: // 'q' or ESC
		return IntentQuit
	case 'c', ' ':
		return IntentCapture
	case 'm':
		return IntentToggleMode
	case 'f':
		return IntentToggleFilters
	case 'n':
		return IntentNextSticker
	case 'p':
		return IntentNextPreset
	case 'r':
		return IntentResetParams
	case 's':
		return IntentSwitchCamera
	case 'x':
		return IntentDismissCapture
	}
	return IntentNone
}
