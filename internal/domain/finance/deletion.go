package finance

import (
	"fmt"
	"sort"
	"time"

	"github.com/academy/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DeletionScope selects how much of a chain a deletion removes
type DeletionScope string

const (
	// DeletionScopeOne removes only the targeted bill
	DeletionScopeOne DeletionScope = "ONE"
	// DeletionScopeAllFuture removes the target and every later installment
	DeletionScopeAllFuture DeletionScope = "ALL_FUTURE"
)

// IsValid checks if the scope is known
func (s DeletionScope) IsValid() bool {
	return s == DeletionScopeOne || s == DeletionScopeAllFuture
}

// String returns the string representation of DeletionScope
func (s DeletionScope) String() string {
	return string(s)
}

// DeletionPlan is the outcome of resolving a deletion: the bills to remove
// and the surviving chain members whose chain fields were rewritten.
type DeletionPlan struct {
	Delete []*Bill
	Update []*Bill
}

// DeletedIDs returns the ids of the bills in Delete, in installment order
func (p *DeletionPlan) DeletedIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Delete))
	for i, b := range p.Delete {
		ids[i] = b.ID
	}
	return ids
}

// SortChain orders chain members by installment number
func SortChain(chain []*Bill) {
	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].InstallmentNumber < chain[j].InstallmentNumber
	})
}

// ValidateChain checks the loaded shape of a chain: one anchor holding the
// lowest installment number, every other member pointing at it, and no
// duplicate numbers. Numbers may have gaps left by earlier deletions.
func ValidateChain(chain []*Bill) error {
	if len(chain) == 0 {
		return shared.NewChainIntegrityError("chain is empty")
	}

	var anchor *Bill
	for _, b := range chain {
		if b.IsAnchor() {
			if anchor != nil {
				return shared.NewChainIntegrityError(
					fmt.Sprintf("chain has two anchors: %s and %s", anchor.ID, b.ID))
			}
			anchor = b
		}
	}
	if anchor == nil {
		return shared.NewChainIntegrityError("chain has no anchor")
	}

	seen := make(map[int]uuid.UUID, len(chain))
	for _, b := range chain {
		if b.TenantID != anchor.TenantID {
			return shared.NewChainIntegrityError(
				fmt.Sprintf("bill %s belongs to a different tenant than its chain", b.ID))
		}
		if other, dup := seen[b.InstallmentNumber]; dup {
			return shared.NewChainIntegrityError(
				fmt.Sprintf("installment %d appears twice (%s, %s)", b.InstallmentNumber, other, b.ID))
		}
		seen[b.InstallmentNumber] = b.ID

		if b.InstallmentNumber < 1 {
			return shared.NewChainIntegrityError(
				fmt.Sprintf("bill %s has installment number %d", b.ID, b.InstallmentNumber))
		}
		if !b.IsAnchor() {
			if *b.ParentID != anchor.ID {
				return shared.NewChainIntegrityError(
					fmt.Sprintf("bill %s points at %s, not at chain anchor %s", b.ID, *b.ParentID, anchor.ID))
			}
			if b.InstallmentNumber < anchor.InstallmentNumber {
				return shared.NewChainIntegrityError(
					fmt.Sprintf("bill %s precedes the chain anchor", b.ID))
			}
		}
	}
	return nil
}

// ResolveDeletion computes which bills a deletion removes and how the
// survivors are repaired. chain must hold every member of target's chain,
// target included; for a standalone bill it is just the target.
//
// ONE removes the target. Survivors get installments decremented by one and,
// when the anchor was removed, the lowest surviving member becomes the new
// anchor. Installment numbers are never compacted.
//
// ALL_FUTURE removes the target and every member numbered at or after it.
// Survivors get installments set to the number of survivors.
func ResolveDeletion(target *Bill, chain []*Bill, scope DeletionScope, now time.Time) (*DeletionPlan, error) {
	if target == nil {
		return nil, shared.NewNotFoundError("bill not found")
	}
	if !scope.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("invalid deletion scope %q", scope))
	}

	members := make([]*Bill, len(chain))
	copy(members, chain)
	SortChain(members)

	if err := ValidateChain(members); err != nil {
		return nil, err
	}
	if !containsBill(members, target.ID) {
		return nil, shared.NewChainIntegrityError(
			fmt.Sprintf("bill %s is not part of the chain it references", target.ID))
	}

	plan := &DeletionPlan{}
	var survivors []*Bill
	for _, b := range members {
		remove := b.ID == target.ID
		if scope == DeletionScopeAllFuture && b.InstallmentNumber >= target.InstallmentNumber {
			remove = true
		}
		if remove {
			b.MarkDeleted(scope, now)
			plan.Delete = append(plan.Delete, b)
		} else {
			survivors = append(survivors, b)
		}
	}
	if len(survivors) == 0 {
		return plan, nil
	}

	switch scope {
	case DeletionScopeOne:
		anchorID := survivors[0].AnchorID()
		if target.IsAnchor() {
			anchorID = survivors[0].ID
		}
		for _, b := range survivors {
			var parentID *uuid.UUID
			if b.ID != anchorID {
				id := anchorID
				parentID = &id
			}
			installments := b.Installments - 1
			if installments < 1 {
				installments = 1
			}
			if b.repairMembership(parentID, installments, now) {
				plan.Update = append(plan.Update, b)
			}
		}
	case DeletionScopeAllFuture:
		total := len(survivors)
		for _, b := range survivors {
			if b.repairMembership(b.ParentID, total, now) {
				plan.Update = append(plan.Update, b)
			}
		}
	}

	for _, b := range plan.Update {
		b.AddDomainEvent(NewBillChainRepairedEvent(b, target.ID, now))
	}
	return plan, nil
}

func containsBill(chain []*Bill, id uuid.UUID) bool {
	for _, b := range chain {
		if b.ID == id {
			return true
		}
	}
	return false
}
