// Package dghash cross-checks the hashes declared in the security object
// against digests recomputed from the data-group bytes read off the chip.
// This is the check that catches genuine content tampering; the signature
// check alone cannot.
package dghash

import (
	"crypto/subtle"
	"sort"

	"pa-gateway/internal/verify/models"
)

// Verify compares every declared and supplied data group and classifies each
// one. Outcomes are ordered by data-group number so results are stable for
// transport and audit.
func Verify(so *models.SecurityObject, supplied map[int][]byte) []models.DataGroupOutcome {
	numbers := make(map[int]struct{}, len(so.DataGroupHashes)+len(supplied))
	for dg := range so.DataGroupHashes {
		numbers[dg] = struct{}{}
	}
	for dg := range supplied {
		numbers[dg] = struct{}{}
	}

	ordered := make([]int, 0, len(numbers))
	for dg := range numbers {
		ordered = append(ordered, dg)
	}
	sort.Ints(ordered)

	outcomes := make([]models.DataGroupOutcome, 0, len(ordered))
	for _, dg := range ordered {
		declared, isDeclared := so.DeclaredHash(dg)
		raw, isSupplied := supplied[dg]

		var status models.DataGroupStatus
		switch {
		case isDeclared && !isSupplied:
			status = models.DataGroupDeclaredNotSupplied
		case !isDeclared && isSupplied:
			status = models.DataGroupSuppliedNotDeclared
		default:
			status = compare(so.DigestAlgorithm, declared, raw)
		}
		outcomes = append(outcomes, models.DataGroupOutcome{DataGroup: dg, Status: status})
	}
	return outcomes
}

// Valid reports the overall hash verdict: every supplied group must match.
// With requireFullCoverage, groups declared in the SOD but not supplied also
// fail the check; by default a PA session may verify a subset.
func Valid(outcomes []models.DataGroupOutcome, requireFullCoverage bool) bool {
	for _, o := range outcomes {
		switch o.Status {
		case models.DataGroupMismatch:
			return false
		case models.DataGroupDeclaredNotSupplied:
			if requireFullCoverage {
				return false
			}
		}
	}
	return true
}

// compare recomputes the digest and compares in constant time.
func compare(alg models.DigestAlgorithm, declared, raw []byte) models.DataGroupStatus {
	h := alg.New()
	h.Write(raw)
	actual := h.Sum(nil)

	if len(declared) == len(actual) && subtle.ConstantTimeCompare(declared, actual) == 1 {
		return models.DataGroupMatch
	}
	return models.DataGroupMismatch
}
