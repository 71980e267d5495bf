// Package textutil provides person-name normalization and fuzzy name
// comparison.
//
// Submitted person names drift from the canonical spelling in small ways
// (accents, case, a transposed letter). NormalizeName folds the first two and
// Ratio scores the rest as an indel-based Levenshtein similarity in [0, 1].
package textutil
