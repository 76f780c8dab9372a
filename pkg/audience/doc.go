// Package audience expands an admin-authored audience descriptor into the
// concrete set of recipient user ids.
//
// Descriptors are a closed set of variants: AllUsers, SpecificRoles and
// IndividualUsers. Resolve always returns a sorted, duplicate-free slice.
// IndividualUsers ids are returned as given without an existence check;
// unknown ids simply produce no deliveries downstream.
package audience
