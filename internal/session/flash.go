package session

const (
	flashKey = "_flashes"
	csrfKey  = "csrf_token"
)

// CSRFKey is the session data key holding the CSRF token.
const CSRFKey = csrfKey

// AddFlash queues a message for the next rendered page.
func AddFlash(sess *Session, message string) {
	if sess.Data == nil {
		sess.Data = map[string]any{}
	}
	sess.Data[flashKey] = append(Flashes(*sess), message)
}

// Flashes returns the queued messages without consuming them. Data that went
// through a JSON round trip holds []any, so both shapes are accepted.
func Flashes(sess Session) []string {
	switch v := sess.Data[flashKey].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// PopFlashes returns the queued messages and clears them.
func PopFlashes(sess *Session) []string {
	flashes := Flashes(*sess)
	delete(sess.Data, flashKey)
	return flashes
}
