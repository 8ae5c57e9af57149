// Package oews holds the domain types shared by the bulk loader and the
// hierarchy crawler: industry classification nodes, occupations, series
// identities, resolutions, and the error classes every stage reports.
package oews
