package godb

import "fmt"

// Catalog maps a table id to the DBFile backing it. BufferPool never
// holds a Catalog itself (every call into it already carries the DBFile
// it needs), and neither does ComputeTableStats, which takes a DBFile
// directly; Catalog exists for callers that only have a table id to
// start from.
type Catalog interface {
	GetDBFile(tableID int) (DBFile, error)
}

// MapCatalog is the simplest possible Catalog: a fixed table-id-to-file
// map built up front by AddTable.
type MapCatalog struct {
	files map[int]DBFile
}

// NewMapCatalog builds an empty catalog.
func NewMapCatalog() *MapCatalog {
	return &MapCatalog{files: make(map[int]DBFile)}
}

// AddTable registers file under its own table id.
func (c *MapCatalog) AddTable(file DBFile) {
	c.files[file.getID()] = file
}

func (c *MapCatalog) GetDBFile(tableID int) (DBFile, error) {
	f, ok := c.files[tableID]
	if !ok {
		return nil, GoDBError{DbError, fmt.Sprintf("no table registered with id %d", tableID)}
	}
	return f, nil
}
