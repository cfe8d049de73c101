package model

import "fmt"

// CheckTask is one URL waiting to be checked.
// A task is a value: it is created when a link is discovered and is never
// mutated afterwards. The queue owns it until a worker takes it, then the
// worker owns it until it reports completion.
type CheckTask struct {
	// URL is the normalized URL to check. See NormalizeURL.
	URL string `json:"url"`

	// Parent is the normalized URL of the page the link was found on.
	// Empty for seed URLs.
	Parent string `json:"parent,omitempty"`

	// Depth is the recursion depth; seeds have depth 0.
	Depth int `json:"depth"`

	// Extern marks a link that is checked but whose content is not
	// followed for further links.
	Extern bool `json:"extern,omitempty"`
}

// NewSeedTask creates a depth 0 task for a seed URL.
func NewSeedTask(rawURL string) (CheckTask, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return CheckTask{}, fmt.Errorf("invalid seed URL %q: %w", rawURL, err)
	}
	return CheckTask{URL: normalized}, nil
}

// NewChildTask creates a task for a link discovered while checking parent.
// rawURL must already be absolute; relative references are resolved by
// the checker that found them.
func NewChildTask(parent CheckTask, rawURL string, extern bool) (CheckTask, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return CheckTask{}, fmt.Errorf("invalid link %q on %s: %w", rawURL, parent.URL, err)
	}
	return CheckTask{
		URL:    normalized,
		Parent: parent.URL,
		Depth:  parent.Depth + 1,
		Extern: extern,
	}, nil
}

// IsSeed reports whether the task came from the seed list.
func (t CheckTask) IsSeed() bool {
	return t.Parent == ""
}
