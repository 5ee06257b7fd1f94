// Package split produces the funeral-expense copy of an application that
// shares its case with the original claim.
package split

import (
	"path"
	"strings"

	"github.com/Lllllllleong/applicationsummaryflow/internal/models"
)

const keySuffix = "-split"

// ForFuneral returns a copy of doc keyed on its funeral reference. The input
// document is never modified.
func ForFuneral(doc *models.Document) *models.Document {
	out := doc.Clone()
	out.Meta.CaseReference = doc.Meta.FuneralReference
	out.Meta.SplitFuneral = true
	return out
}

// Applies reports whether doc needs a split funeral document. Documents that
// are already the split copy never split again.
func Applies(doc *models.Document) bool {
	return doc != nil && doc.Meta.FuneralReference != "" && !doc.Meta.SplitFuneral
}

// DeriveKey inserts "-split" before the extension of key, keeping its
// directory: "dir/file.json" becomes "dir/file-split.json".
func DeriveKey(key string) string {
	dir, file := path.Split(key)
	ext := path.Ext(file)
	return dir + strings.TrimSuffix(file, ext) + keySuffix + ext
}

// IsDerivedKey reports whether key was produced by DeriveKey.
func IsDerivedKey(key string) bool {
	_, file := path.Split(key)
	return strings.HasSuffix(strings.TrimSuffix(file, path.Ext(file)), keySuffix)
}
