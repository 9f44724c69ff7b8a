package flow

// Selectors for the target site's rendered markup. These are deliberately
// specific to one retail site and will break when its frontend changes;
// keeping them in one place makes that breakage a one-file fix.
//
// Selectors starting with "/" or "(" are XPath, the rest are CSS (see
// schemas.BrowserSession).
const (
	selLocationInput = `input[placeholder="Search delivery location"]`
	selFirstAddress  = `.address-container-v1 > div:nth-child(1)`
	xpLoginControl   = `//*[text()="Login"]`
	selPhoneInput    = `[data-test-id="phone-no-text-box"]`
	xpContinue       = `//*[text()="Continue"]`

	// OTP digits land in separate indexed boxes; XPath position is 1-based.
	xpOtpBoxFmt = `(//input[@data-test-id="otp-text-box"])[%d]`

	// Product page controls.
	xpAddToCart  = `//div[text()="ADD"]`
	xpVariantFmt = `//div[text()="%s"]`

	// Cart view.
	cartPath     = "/cart"
	selCartItem  = `[data-test-id="cart-item"]`
	selItemName  = `.cart-item__name`
	selItemQty   = `.cart-item__quantity`
	selItemPrice = `.cart-item__price`
	selCartTotal = `[data-test-id="cart-total"]`
)
