package db

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func sqliteMemory() gorm.Dialector {
	// A distinct shared-cache name per call keeps test databases isolated
	// while allowing multiple connections within one test.
	return sqlite.Open(fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq.Add(1)))
}
