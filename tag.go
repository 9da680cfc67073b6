package git

import (
	"errors"
	"time"

	"github.com/awesome-os/universal-git-sub008/plumbing"
	"github.com/awesome-os/universal-git-sub008/plumbing/object"
)

// ErrMissingTagger is returned by CreateTagOptions.Validate when no tagger
// can be determined, neither explicitly nor from the repository config.
var ErrMissingTagger = errors.New("tagger field is required")

// ErrTagExists is returned by CreateTag when name is already in use.
var ErrTagExists = errors.New("tag already exists")

// CreateTagOptions describes how an annotated tag should be created; a nil
// *CreateTagOptions requests a lightweight tag instead.
type CreateTagOptions struct {
	// Tagger records who created the tag; defaults to the repository's
	// configured user.name/user.email.
	Tagger *object.Signature
	// Message is the tag's free-form annotation; required for an
	// annotated tag.
	Message string
	// SignKey, if set, is used to sign the tag (unused here; dedicated
	// transport/crypto integration is out of scope for this facade).
	SignKey interface{}
}

// Validate validates the fields and sets default values.
func (o *CreateTagOptions) Validate(r *Repository, hash plumbing.Hash) error {
	if o.Message == "" {
		return errors.New("tag message is required")
	}

	if o.Tagger == nil {
		cfg, err := r.Config()
		if err != nil {
			return err
		}

		if cfg.User.Name == "" && cfg.User.Email == "" {
			return ErrMissingTagger
		}

		o.Tagger = &object.Signature{
			Name:  cfg.User.Name,
			Email: cfg.User.Email,
			When:  time.Now(),
		}
	}

	return nil
}

// CreateTag creates a tag named name pointing at hash. If opts is nil, a
// lightweight tag is created (a plain reference); otherwise an annotated
// tag object is stored and the reference points at it.
func (r *Repository) CreateTag(name string, hash plumbing.Hash, opts *CreateTagOptions) (*plumbing.Reference, error) {
	ref := plumbing.NewTagReferenceName(name)

	if _, err := r.s.Reference(ref); err == nil {
		return nil, ErrTagExists
	} else if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, err
	}

	target := hash
	if opts != nil {
		if err := opts.Validate(r, hash); err != nil {
			return nil, err
		}

		targetObj, err := r.Object(plumbing.AnyObject, hash)
		if err != nil {
			return nil, err
		}

		tag := &object.Tag{
			Name:       name,
			Tagger:     *opts.Tagger,
			Message:    opts.Message,
			TargetType: targetObj.Type(),
			Target:     hash,
		}

		obj := r.s.NewEncodedObject()
		if err := tag.Encode(obj); err != nil {
			return nil, err
		}

		target, err = r.s.SetEncodedObject(obj)
		if err != nil {
			return nil, err
		}
	}

	newRef := plumbing.NewHashReference(ref, target)
	return newRef, r.s.SetReference(newRef)
}

// DeleteTag deletes a tag by name.
func (r *Repository) DeleteTag(name string) error {
	return r.s.RemoveReference(plumbing.NewTagReferenceName(name))
}
