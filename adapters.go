package surveilans

import (
	"io/fs"
	"os"
)

// FileSystemOperations is the slice of the filesystem the logger, the extract
// store and the consolidator touch. Tests swap in MockFileSystem.
type FileSystemOperations interface {
	MkdirAll(path string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Stat(name string) (fs.FileInfo, error)
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

type FileSystem struct{}

func (FileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (FileSystem) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (FileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (FileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (FileSystem) Remove(name string) error {
	return os.Remove(name)
}

type MockFileSystem struct {
	MkdirAllErr  error
	OpenFileErr  error
	OpenFileMock *os.File
	StatErr      error
	RenameErr    error
	RemoveErr    error
}

func (mfs MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return mfs.MkdirAllErr
}

func (mfs MockFileSystem) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return mfs.OpenFileMock, mfs.OpenFileErr
}

func (mfs MockFileSystem) Stat(name string) (fs.FileInfo, error) {
	return nil, mfs.StatErr
}

func (mfs MockFileSystem) Rename(oldpath, newpath string) error {
	return mfs.RenameErr
}

func (mfs MockFileSystem) Remove(name string) error {
	return mfs.RemoveErr
}
