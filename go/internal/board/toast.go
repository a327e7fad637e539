package board

// ToastKind selects the notification styling.
type ToastKind string

const (
	ToastOK    ToastKind = "ok"
	ToastError ToastKind = "err"
)

const (
	toastAdvanceOK     = "Recorded to the scan log"
	toastAdvanceFailed = "Operation failed, please retry"
)

// Toast is the short-lived notification. Seq identifies the dismissal timer
// that belongs to the current message so an older timer cannot hide a newer
// toast.
type Toast struct {
	Visible bool      `json:"visible"`
	Message string    `json:"message"`
	Kind    ToastKind `json:"kind"`
	Seq     uint64    `json:"seq"`
}

// show replaces the current toast and returns the effect that dismisses it.
func (t *Toast) show(message string, kind ToastKind) Effect {
	t.Seq++
	t.Visible = true
	t.Message = message
	t.Kind = kind
	return DismissToast{Seq: t.Seq}
}

func (t *Toast) expire(seq uint64) {
	if seq != t.Seq {
		return
	}
	t.Visible = false
}
