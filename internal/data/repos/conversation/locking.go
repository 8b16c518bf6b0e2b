package conversation

import "gorm.io/gorm/clause"

// sqlite ignores row locks; postgres takes FOR UPDATE.
func lockForUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}
