package board

// ImageLoader tracks the QR image element between snapshots: which URL was
// handed to the fetcher, which one last loaded, and whether the transient
// switching treatment or the failure fallback applies.
type ImageLoader struct {
	Requested string `json:"requested"`
	LastShown string `json:"last_shown"`
	Switching bool   `json:"switching"`
	Failed    bool   `json:"failed"`
}

// Observe is called with the URL the detail panel wants to show. It returns
// true when the URL must be fetched.
func (l *ImageLoader) Observe(url string) bool {
	if url == "" {
		l.Requested = ""
		l.Switching = false
		l.Failed = false
		return false
	}
	if url == l.Requested {
		// already on screen; a pre-fade from an advance has nothing to wait for
		if !l.Failed && l.LastShown == url {
			l.Switching = false
		}
		return false
	}
	l.Requested = url
	l.Failed = false
	if l.LastShown != "" && l.LastShown != url {
		l.Switching = true
	}
	return true
}

// Loaded records a successful load. Results for stale URLs are ignored.
func (l *ImageLoader) Loaded(url string) {
	if url != l.Requested {
		return
	}
	l.LastShown = url
	l.Switching = false
	l.Failed = false
}

// Fail records a failed load. Results for stale URLs are ignored.
func (l *ImageLoader) Fail(url string) {
	if url != l.Requested {
		return
	}
	l.Failed = true
	l.Switching = false
}

// PreFade starts the switching treatment ahead of an advance when an image is
// currently visible.
func (l *ImageLoader) PreFade() {
	if l.Requested != "" && !l.Failed {
		l.Switching = true
	}
}

// CancelPreFade drops a pre-fade that will not be followed by a new image.
func (l *ImageLoader) CancelPreFade() {
	if l.Requested == l.LastShown {
		l.Switching = false
	}
}

// FailedFor reports whether url is the URL whose load failed.
func (l *ImageLoader) FailedFor(url string) bool {
	return l.Failed && url != "" && url == l.Requested
}
