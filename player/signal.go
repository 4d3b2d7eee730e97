// Package player normalizes the untrusted, loosely-typed messages emitted
// by the embedded clip player into a small typed signal.
//
// The embed channel is best-effort: messages may use any of several
// historically-observed field names, arrive out of order, or never arrive
// at all. Parse accepts what it can recognize and reports everything else
// as unusable; nothing downstream ever sees a raw message.
package player

import "encoding/json"

// Signal is a normalized inbound playback report.
type Signal struct {
	// ClipID tags the report to a clip, when the message carried one.
	// Signals for a clip that is no longer current are discarded by the
	// session controller.
	ClipID string

	// Elapsed is the reported playback position in seconds, valid only
	// when HasElapsed is set.
	Elapsed    float64
	HasElapsed bool

	// Ended reports an end-of-playback condition.
	Ended bool
}

// Field name variants seen in the wild from different embed versions.
var (
	elapsedKeys = []string{"currentTime", "time", "position", "seconds"}
	clipIDKeys  = []string{"clip", "clipId", "clip_id", "id"}
	endedEvents = map[string]bool{
		"video-ended": true,
		"ended":       true,
		"complete":    true,
	}
)

// Parse interprets a raw message body. ok is false when the message
// carries neither a usable position nor an end-of-playback condition;
// such messages are dropped silently, never surfaced.
func Parse(raw []byte) (Signal, bool) {
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Signal{}, false
	}

	sig := scan(msg)

	// Some embed versions nest the payload one level down.
	for _, key := range []string{"data", "params"} {
		if nested, ok := msg[key].(map[string]any); ok {
			inner := scan(nested)
			sig = merge(sig, inner)
		}
	}

	if !sig.HasElapsed && !sig.Ended {
		return Signal{}, false
	}
	return sig, true
}

// scan extracts whatever fields one object level carries.
func scan(msg map[string]any) Signal {
	var sig Signal

	for _, key := range clipIDKeys {
		if s, ok := msg[key].(string); ok && s != "" {
			sig.ClipID = s
			break
		}
	}

	for _, key := range elapsedKeys {
		if n, ok := asNumber(msg[key]); ok && n >= 0 {
			sig.Elapsed = n
			sig.HasElapsed = true
			break
		}
	}

	for _, key := range []string{"event", "eventName", "type"} {
		if s, ok := msg[key].(string); ok && endedEvents[s] {
			sig.Ended = true
			break
		}
	}
	if b, ok := msg["ended"].(bool); ok && b {
		sig.Ended = true
	}

	return sig
}

// merge prefers fields already present in outer, filling gaps from inner.
func merge(outer, inner Signal) Signal {
	if outer.ClipID == "" {
		outer.ClipID = inner.ClipID
	}
	if !outer.HasElapsed && inner.HasElapsed {
		outer.Elapsed = inner.Elapsed
		outer.HasElapsed = true
	}
	outer.Ended = outer.Ended || inner.Ended
	return outer
}

func asNumber(v any) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}
