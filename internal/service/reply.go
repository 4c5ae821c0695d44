package service

// Keyboard names a fixed reply-keyboard layout. The transport layer owns
// the actual markup; services only pick which one to show.
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardRemove
	KeyboardFaculty
	KeyboardFormEduc
	KeyboardYesNo
	KeyboardMainMenu
	KeyboardMainMenuWithReg
)

// Identity is the minimal sender info a handler needs.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
}

// MenuButton is one signed inline action.
type MenuButton struct {
	Label string
	Data  string
}

// SummaryMenu is the "check your data" screen with confirm/edit actions.
type SummaryMenu struct {
	Text    string
	Confirm MenuButton
	Edit    MenuButton
}

// EditMenu lists one signed edit action per field plus a confirm action.
type EditMenu struct {
	Text    string
	Fields  []MenuButton
	Confirm MenuButton
}

// Reply is a renderable response: a text with an optional keyboard and
// optionally one of the inline menus. Parts are sent in declaration order.
type Reply struct {
	Text     string
	Keyboard Keyboard
	Summary  *SummaryMenu
	EditMenu *EditMenu
}

// CallbackReply is the response to a signed interactive action.
type CallbackReply struct {
	Ack          string
	Alert        bool
	DeleteSource bool
	Replies      []Reply
}
