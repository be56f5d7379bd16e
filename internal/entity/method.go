package entity

// Method is the closed set of second-factor channels.
type Method string

const (
	MethodTOTP  Method = "totp"
	MethodSMS   Method = "sms"
	MethodEmail Method = "email"
)

// ProofRecovery is not an enrollable method but appears in the allowed-method
// list of a partial-session token.
const ProofRecovery = "recovery"

func ParseMethod(value string) (Method, bool) {
	switch Method(value) {
	case MethodTOTP, MethodSMS, MethodEmail:
		return Method(value), true
	}
	return "", false
}

// RequiresDispatch reports whether codes for the method travel through an
// external delivery channel. TOTP codes are computed locally on both sides.
func (m Method) RequiresDispatch() bool {
	return m == MethodSMS || m == MethodEmail
}
