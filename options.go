package git

import (
	"errors"

	"github.com/awesome-os/universal-git-sub008/config"
	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/protocol/packp/sideband"
	"github.com/awesome-os/universal-git-sub008/plumbing/transport"
)

// DefaultRemoteName is the name used for a remote created implicitly by
// Clone, just like the git command does.
const DefaultRemoteName = "origin"

var (
	ErrMissingURL        = errors.New("URL field is required")
	ErrMissingRemoteName = errors.New("remote name field is required")
	ErrInvalidRefSpec    = errors.New("invalid refspec")
	ErrNoRemoteRefSpec   = errors.New("remote has no refspec configured")
)

// CloneOptions describes how a clone should be performed.
type CloneOptions struct {
	// URL is the (possibly remote) repository to clone from.
	URL string
	// Auth credentials, if required, to use with the remote repository.
	Auth transport.AuthMethod
	// RemoteName is the name of the remote to add, defaulting to "origin".
	RemoteName string
	// ReferenceName is the remote branch or tag to clone, defaulting to HEAD.
	ReferenceName plumbing.ReferenceName
	// SingleBranch limits fetching to ReferenceName when true.
	SingleBranch bool
	// Depth limits fetching to the given number of commits from the tip of
	// each branch; a depth of 0 fetches the full history.
	Depth int
	// Progress is where human-readable progress text is written, if non-nil.
	Progress sideband.Progress
	// CABundle holds a PEM-encoded bundle of root certificates.
	CABundle []byte
	// ProxyOptions configures a proxy to use for network operations.
	ProxyOptions transport.ProxyOptions
	// InsecureSkipTLS controls whether TLS certificates are verified.
	InsecureSkipTLS bool
}

// Validate validates the fields and sets default values.
func (o *CloneOptions) Validate() error {
	if o.URL == "" {
		return ErrMissingURL
	}

	if o.RemoteName == "" {
		o.RemoteName = DefaultRemoteName
	}

	if o.ReferenceName == "" {
		o.ReferenceName = plumbing.HEAD
	}

	return nil
}

// PullOptions describes how a pull should be performed.
type PullOptions struct {
	// RemoteName is the remote to pull from, defaulting to "origin".
	RemoteName string
	// ReferenceName is the remote branch to merge into the current branch.
	ReferenceName plumbing.ReferenceName
	// SingleBranch limits fetching to ReferenceName when true.
	SingleBranch bool
	// Depth limits fetching to the given number of commits.
	Depth int
	// Auth credentials, if required, to use with the remote repository.
	Auth transport.AuthMethod
	// Progress is where human-readable progress text is written, if non-nil.
	Progress sideband.Progress
	// Force allows non-fast-forward updates to the local reference.
	Force bool
}

// Validate validates the fields and sets default values.
func (o *PullOptions) Validate() error {
	if o.RemoteName == "" {
		o.RemoteName = DefaultRemoteName
	}

	if o.ReferenceName == "" {
		o.ReferenceName = plumbing.HEAD
	}

	return nil
}

// FetchOptions describes how a fetch should be performed.
type FetchOptions struct {
	// RemoteName is the remote to fetch from, defaulting to "origin".
	RemoteName string
	// RemoteURL overrides the remote's configured URL when set.
	RemoteURL string
	// RefSpecs to fetch, defaulting to the remote's configured Fetch refspecs.
	RefSpecs []config.RefSpec
	// Depth limits fetching to the given number of commits.
	Depth int
	// Auth credentials, if required, to use with the remote repository.
	Auth transport.AuthMethod
	// Progress is where human-readable progress text is written, if non-nil.
	Progress sideband.Progress
	// Tags controls which tags accompany the fetch.
	Tags plumbing.TagMode
	// Force allows non-fast-forward updates to local references.
	Force bool
	// Prune removes remote-tracking references that no longer exist on the
	// remote.
	Prune bool
	// InsecureSkipTLS controls whether TLS certificates are verified.
	InsecureSkipTLS bool
	// CABundle holds a PEM-encoded bundle of root certificates.
	CABundle []byte
	// ProxyOptions configures a proxy to use for network operations.
	ProxyOptions transport.ProxyOptions
}

// Validate validates the fields and sets default values.
func (o *FetchOptions) Validate() error {
	if o.RemoteName == "" {
		o.RemoteName = DefaultRemoteName
	}

	if o.Tags == plumbing.InvalidTagMode {
		o.Tags = plumbing.TagFollowing
	}

	return nil
}

// PushOptions describes how a push should be performed.
type PushOptions struct {
	// RemoteName is the remote to push to, defaulting to "origin".
	RemoteName string
	// RemoteURL overrides the remote's configured URL when set.
	RemoteURL string
	// RefSpecs to push; defaults to the matching refspecs of the remote.
	RefSpecs []config.RefSpec
	// Auth credentials, if required, to use with the remote repository.
	Auth transport.AuthMethod
	// Progress is where human-readable progress text is written, if non-nil.
	Progress sideband.Progress
	// Prune removes remote references that no longer exist locally.
	Prune bool
	// Force allows non-fast-forward updates, overriding refspec "+" markers.
	Force bool
	// ForceWithLease allows a force push only if the remote ref still
	// matches an expected value, preventing clobbering concurrent pushes.
	ForceWithLease *ForceWithLease
	// FollowTags pushes any local annotated tag reachable from a pushed ref.
	FollowTags bool
	// InsecureSkipTLS controls whether TLS certificates are verified.
	InsecureSkipTLS bool
	// CABundle holds a PEM-encoded bundle of root certificates.
	CABundle []byte
	// RequireRemoteRefs requires the remote refs to match these hashes
	// before the push is attempted, guarding against racing updates.
	RequireRemoteRefs []config.RefSpec
	// Options carries push-options to be sent to a server that supports
	// them (capability "push-options").
	Options map[string]string
	// Atomic makes the push atomic: either every ref update succeeds, or
	// none of them are applied.
	Atomic bool
	// ProxyOptions configures a proxy to use for network operations.
	ProxyOptions transport.ProxyOptions
}

// Validate validates the fields and sets default values.
func (o *PushOptions) Validate() error {
	if o.RemoteName == "" {
		o.RemoteName = DefaultRemoteName
	}

	for _, r := range o.RefSpecs {
		if !r.IsValid() {
			return ErrInvalidRefSpec
		}
	}

	return nil
}

// ForceWithLease restricts a force push to only take effect if the remote
// ref still has the expected value, equivalent to
// git push --force-with-lease.
type ForceWithLease struct {
	// RefName restricts the check to one reference; the zero value checks
	// every reference being updated.
	RefName plumbing.ReferenceName
	// Hash is the expected current value of the remote ref; the zero value
	// uses the value last observed in the local remote-tracking ref.
	Hash plumbing.Hash
}

// PeelingOption defines how peeled references are handled by Remote.List.
type PeelingOption int8

const (
	// IgnorePeeled ignores peeled references, returning only the
	// non-peeled set.
	IgnorePeeled PeelingOption = iota
	// OnlyPeeled returns only peeled references.
	OnlyPeeled
	// AppendPeeled returns both peeled and non-peeled references.
	AppendPeeled
)

// ListOptions describes how a remote ref listing should be performed.
type ListOptions struct {
	// Auth credentials, if required, to use with the remote repository.
	Auth transport.AuthMethod
	// InsecureSkipTLS controls whether TLS certificates are verified.
	InsecureSkipTLS bool
	// CABundle holds a PEM-encoded bundle of root certificates.
	CABundle []byte
	// ProxyOptions configures a proxy to use for network operations.
	ProxyOptions transport.ProxyOptions
	// Timeout in seconds for the operation, defaulting to 10.
	Timeout int
	// PeelingOption controls whether peeled references are returned.
	PeelingOption PeelingOption
}
