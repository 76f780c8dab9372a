package audience

import (
	"context"
	"fmt"
	"slices"
)

// Kind is the wire name of a descriptor variant.
type Kind string

const (
	KindAll        Kind = "all"
	KindRoles      Kind = "roles"
	KindIndividual Kind = "individual"
)

// Descriptor selects recipients. Implemented only by the variants in this package.
type Descriptor interface {
	Kind() Kind
	descriptor()
}

// AllUsers targets every active user.
type AllUsers struct{}

// SpecificRoles targets active users holding at least one of Roles.
type SpecificRoles struct {
	Roles []string
}

// IndividualUsers targets exactly IDs.
type IndividualUsers struct {
	IDs []int64
}

func (AllUsers) Kind() Kind        { return KindAll }
func (SpecificRoles) Kind() Kind   { return KindRoles }
func (IndividualUsers) Kind() Kind { return KindIndividual }

func (AllUsers) descriptor()        {}
func (SpecificRoles) descriptor()   {}
func (IndividualUsers) descriptor() {}

// Spec is the serializable form of a Descriptor, as stored with scheduled
// notifications and accepted from API callers.
type Spec struct {
	Kind    Kind     `json:"kind" validate:"required,oneof=all roles individual"`
	Roles   []string `json:"roles,omitempty"`
	UserIDs []int64  `json:"user_ids,omitempty"`
}

// Descriptor converts the spec into its variant, validating that the
// variant-specific list is present.
func (s Spec) Descriptor() (Descriptor, error) {
	switch s.Kind {
	case KindAll:
		return AllUsers{}, nil
	case KindRoles:
		if len(s.Roles) == 0 {
			return nil, fmt.Errorf("%w: roles audience requires at least one role", ErrInvalidDescriptor)
		}
		return SpecificRoles{Roles: slices.Clone(s.Roles)}, nil
	case KindIndividual:
		if len(s.UserIDs) == 0 {
			return nil, fmt.Errorf("%w: individual audience requires at least one user id", ErrInvalidDescriptor)
		}
		return IndividualUsers{IDs: slices.Clone(s.UserIDs)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
}

// Parse builds a Descriptor from its wire form.
func Parse(kind Kind, roles []string, userIDs []int64) (Descriptor, error) {
	return Spec{Kind: kind, Roles: roles, UserIDs: userIDs}.Descriptor()
}

// SpecOf returns the serializable form of d.
func SpecOf(d Descriptor) Spec {
	switch v := d.(type) {
	case SpecificRoles:
		return Spec{Kind: KindRoles, Roles: slices.Clone(v.Roles)}
	case IndividualUsers:
		return Spec{Kind: KindIndividual, UserIDs: slices.Clone(v.IDs)}
	default:
		return Spec{Kind: KindAll}
	}
}

// Directory is the read side of the user table.
type Directory interface {
	// ActiveUserIDs returns ids of all active users.
	ActiveUserIDs(ctx context.Context) ([]int64, error)

	// UserIDsByRoles returns ids of active users holding any of roles.
	UserIDsByRoles(ctx context.Context, roles []string) ([]int64, error)
}

// Resolver expands descriptors using a Directory.
type Resolver struct {
	dir Directory
}

// NewResolver creates a Resolver backed by dir.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns the sorted, duplicate-free recipient set for d.
func (r *Resolver) Resolve(ctx context.Context, d Descriptor) ([]int64, error) {
	var (
		ids []int64
		err error
	)

	switch v := d.(type) {
	case AllUsers:
		ids, err = r.dir.ActiveUserIDs(ctx)
	case SpecificRoles:
		if len(v.Roles) == 0 {
			return []int64{}, nil
		}
		ids, err = r.dir.UserIDsByRoles(ctx, v.Roles)
	case IndividualUsers:
		ids = slices.Clone(v.IDs)
	case nil:
		return nil, fmt.Errorf("%w: descriptor is nil", ErrInvalidDescriptor)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, d)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s audience: %w", d.Kind(), err)
	}

	return Unique(ids), nil
}

// Unique returns a sorted copy of ids without duplicates.
func Unique(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
