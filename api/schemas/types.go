package schemas

import "time"

// WorkflowState names the phase a login-and-purchase workflow has reached.
// Operations are only legal from specific states; the transition table below
// is the single source of truth.
type WorkflowState string

const (
	StateAnonymous     WorkflowState = "anonymous"
	StateOtpRequested  WorkflowState = "otp_requested"
	StateVerified      WorkflowState = "verified"
	StateCartPopulated WorkflowState = "cart_populated"
)

// transitions maps each state to the single state it may advance to. The
// workflow is linear, except that a populated cart may be populated again:
// that attempt is legal at the state level and fails on handle absence
// instead, which tells the caller what actually happened.
var transitions = map[WorkflowState]WorkflowState{
	StateAnonymous:     StateOtpRequested,
	StateOtpRequested:  StateVerified,
	StateVerified:      StateCartPopulated,
	StateCartPopulated: StateCartPopulated,
}

// CanTransition reports whether a workflow in state from may move to state to.
func CanTransition(from, to WorkflowState) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Cookie is a serializable snapshot of one browser cookie. It carries only
// the fields needed to restore the cookie onto a fresh browsing context.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // unix seconds, 0 when session-scoped
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// SessionRecord is the durable identity of one workflow instance. It is
// written to both persistence tiers on every save and never carries any
// reference to the live browser handle.
type SessionRecord struct {
	SessionID   string        `json:"sessionId"`
	PhoneNumber string        `json:"phoneNumber"`
	State       WorkflowState `json:"state"`
	Cookies     []Cookie      `json:"cookies,omitempty"`
	DOMSnapshot string        `json:"domSnapshot,omitempty"`
	CurrentURL  string        `json:"currentUrl,omitempty"`
	IsVerified  bool          `json:"isVerified"`

	// OTP fields exist for schema parity with the durable store; the real
	// one-time code is delivered out of band and never observed here.
	OTP          string     `json:"otp,omitempty"`
	OTPExpiresAt *time.Time `json:"otpExpiresAt,omitempty"`

	Cart []CartLineItem `json:"cart,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product identifies one item to add to the cart.
type Product struct {
	URL     string `json:"url"`
	Variant string `json:"variant"`
}

// CartLineItem is one scraped row of the rendered cart.
type CartLineItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CartSummary is the scraped result of a populate-cart call. TotalPrice is
// the page's own displayed total, not a sum of the line items; the two can
// legitimately diverge when the site applies discounts.
type CartSummary struct {
	Items      []CartLineItem `json:"items"`
	TotalPrice float64        `json:"totalPrice"`
}
