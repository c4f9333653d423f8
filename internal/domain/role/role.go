package role

import "strings"

// Address identifies an account. The empty string is the zero address.
type Address string

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

func (a Address) String() string {
	return string(a)
}

// Roles holds the two independent privileges of a vesting instance.
// Owner is administrative and may be renounced; Project is operational and
// can only be handed over by its current holder.
type Roles struct {
	Owner   Address `json:"owner"`
	Project Address `json:"project"`
}

// RequireOwner fails unless caller holds the owner role.
func (r Roles) RequireOwner(caller Address) error {
	if r.Owner.IsZero() || caller != r.Owner {
		return ErrUnauthorized
	}
	return nil
}

// RequireProject fails unless caller holds the project role.
func (r Roles) RequireProject(caller Address) error {
	if r.Project.IsZero() || caller != r.Project {
		return ErrUnauthorized
	}
	return nil
}

// IsProject reports whether caller currently holds the project role.
func (r Roles) IsProject(caller Address) bool {
	return r.RequireProject(caller) == nil
}

// TransferOwnership hands the owner role to next and returns the previous owner.
func (r *Roles) TransferOwnership(caller, next Address) (Address, error) {
	if err := r.RequireOwner(caller); err != nil {
		return "", err
	}
	if next.IsZero() {
		return "", ErrZeroAddress
	}
	prev := r.Owner
	r.Owner = next
	return prev, nil
}

// RenounceOwnership clears the owner role. Owner-gated operations fail for good afterwards.
func (r *Roles) RenounceOwnership(caller Address) (Address, error) {
	if err := r.RequireOwner(caller); err != nil {
		return "", err
	}
	prev := r.Owner
	r.Owner = ""
	return prev, nil
}

// TransferProject hands the project role to next and returns the previous holder.
func (r *Roles) TransferProject(caller, next Address) (Address, error) {
	if err := r.RequireProject(caller); err != nil {
		return "", err
	}
	if next.IsZero() {
		return "", ErrZeroAddress
	}
	if next == r.Project {
		return "", ErrSameAddress
	}
	prev := r.Project
	r.Project = next
	return prev, nil
}
