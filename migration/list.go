package migration

import (
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/Skyrin/go-safar/e"
)

const (
	ECode090201 = e.Code0902 + "01"
	ECode090202 = e.Code0902 + "02"
	ECode090203 = e.Code0902 + "03"
	ECode090204 = e.Code0902 + "04"
	ECode090205 = e.Code0902 + "05"
)

// File a single versioned migration
type File struct {
	Name    string
	Version int
	SQL     []byte
}

// List the migrations of one component, identified by its code
type List struct {
	code       string
	path       string
	migrations fs.FS
	files      []*File
}

// NewList initialize a new list. The files in the path of the file system are
// the migrations, named with a zero padded version, an underscore and any
// description, e.g. 0001_init.sql
func NewList(code, path string, migrations fs.FS) (l *List) {
	return &List{
		code:       code,
		path:       path,
		migrations: migrations,
	}
}

// Code returns the code of the list
func (l *List) Code() string {
	return l.code
}

// GetVersionFromName parse the name for the version. The name is expected to have
// the version first as a 0 padded number and then an underscore. The rest of the
// name can be anything.
func (f *File) GetVersionFromName() (v int, err error) {
	sList := strings.SplitN(f.Name, "_", 2)
	if len(sList) != 2 {
		return 0, e.N(ECode090201, e.MsgMigrationFileNameInvalid)
	}

	v, err = strconv.Atoi(sList[0])
	if err != nil {
		return 0, e.W(err, ECode090202, e.MsgMigrationFileNameInvalid)
	}

	if v <= 0 {
		return 0, e.N(ECode090203, e.MsgMigrationFileNameInvalid)
	}

	return v, nil
}

// GetLatestMigrationFiles gets all migration files after the specified version,
// sorted by version
func (l *List) GetLatestMigrationFiles(v int) (fList []*File, err error) {
	dirList, err := fs.ReadDir(l.migrations, l.path)
	if err != nil {
		return nil, e.W(err, ECode090204)
	}
	fList = make([]*File, 0, len(dirList))

	for _, file := range dirList {
		if file.IsDir() {
			continue
		}

		f := &File{
			Name: file.Name(),
		}

		f.Version, err = f.GetVersionFromName()
		if err != nil {
			return nil, err
		}

		if f.Version <= v {
			continue
		}

		f.SQL, err = fs.ReadFile(l.migrations, path.Join(l.path, file.Name()))
		if err != nil {
			return nil, e.W(err, ECode090205)
		}

		fList = append(fList, f)
	}

	sort.Slice(fList, func(i, j int) bool {
		return fList[i].Version < fList[j].Version
	})

	return fList, nil
}
