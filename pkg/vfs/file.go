// Copyright 2025 Chainguard, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vfs

import (
	"io"
	"slices"

	"chainguard.dev/harnessfs/pkg/vpath"
)

// openFiles is the process-wide open-file table. Descriptors reference
// their inode by identity, so they stay valid across rename and unlink.
var openFiles = map[int]*fileDescription{}

// fileDescription is the state behind one file descriptor: position, flags,
// and a private write buffer that reaches the inode only on fsync/close.
type fileDescription struct {
	fs       *FS
	fd       int
	path     string
	basename string
	parent   *inode
	node     *inode
	flags    int
	written  bool
	dirty    bool
	offset   int64
	buf      []byte
}

// Open opens path with a numeric flag mask. Use ParseOpenFlags to translate
// mode strings such as "r+" or "wx". The returned descriptor must be closed
// for writes to reach the inode.
func (fs *FS) Open(path string, flags int, mode ...uint32) (int, error) {
	perm := uint32(0o666)
	if len(mode) > 0 {
		perm = mode[0]
	}
	resolved, err := fs.resolvePath(path, "open")
	if err != nil {
		return 0, err
	}
	if isWritable(flags) || flags&(O_CREAT|O_TRUNC) != 0 {
		if err := fs.checkWritable("open", resolved); err != nil {
			return 0, err
		}
	}
	res, err := fs.walk(resolved, flags&O_NOFOLLOW != 0, "open")
	if err != nil {
		return 0, err
	}
	switch {
	case res == nil && flags&O_CREAT != 0:
		if flags&O_DIRECTORY != 0 {
			return 0, errorf(ENOTDIR, "open", resolved)
		}
		parent, err := fs.walkParent(resolved, "open")
		if err != nil {
			return 0, err
		}
		links := fs.getLinks(parent.node)
		basename := vpath.Basename(resolved)
		if _, ok := links.get(basename); ok {
			// a dangling symlink occupies the name; creating through it is
			// not supported
			return 0, errorf(ENOENT, "open", resolved)
		}
		node := fs.mknod(parent.node.dev, S_IFREG, perm)
		node.buf = []byte{}
		fs.addLink(parent.node, links, basename, node)
		now := fs.now()
		parent.node.mtimeMs, parent.node.ctimeMs = now, now
		res = &walkResult{path: resolved, basename: basename, parent: parent.node, node: node}
	case res == nil:
		return 0, errorf(ENOENT, "open", resolved)
	case flags&(O_CREAT|O_EXCL) == O_CREAT|O_EXCL:
		return 0, errorf(EEXIST, "open", resolved)
	}
	if flags&O_DIRECTORY != 0 && res.node.isFile() {
		return 0, errorf(ENOTDIR, "open", res.path)
	}
	if isWritable(flags) && res.node.isDir() {
		return 0, errorf(EISDIR, "open", res.path)
	}
	var offset int64
	if res.node.isFile() && flags&(O_APPEND|O_TRUNC) == O_APPEND {
		offset = fs.fileSize(res.node)
	}
	entry := &fileDescription{
		fs:       fs,
		fd:       int(fdCount.Add(1)),
		path:     res.path,
		basename: res.basename,
		parent:   res.parent,
		node:     res.node,
		flags:    flags,
		offset:   offset,
	}
	openFiles[entry.fd] = entry
	if flags&O_TRUNC != 0 {
		entry.buf = []byte{}
		entry.written, entry.dirty = true, true
		if flags&O_SYNC != 0 {
			fs.fsyncEntry(entry, true)
		}
	}
	return entry.fd, nil
}

func getEntry(fd int, syscall string) (*fileDescription, error) {
	entry, ok := openFiles[fd]
	if !ok {
		return nil, errorf(EBADF, syscall, "")
	}
	return entry, nil
}

// Read copies up to length bytes of the file into b[offset:]. A position of
// −1 reads from, and advances, the descriptor offset.
func (fs *FS) Read(fd int, b []byte, offset, length int, position int64) (int, error) {
	entry, err := getEntry(fd, "read")
	if err != nil {
		return 0, err
	}
	if !isReadable(entry.flags) {
		return 0, errorf(EBADF, "read", entry.path)
	}
	if offset < 0 || length < 0 || position < -1 || offset > len(b)-length {
		return 0, errorf(EINVAL, "read", entry.path)
	}
	if entry.node.isDir() {
		return 0, errorf(EISDIR, "read", entry.path)
	}
	src := entry.buf
	if src == nil {
		src, err = entry.fs.fileBuffer(entry.node)
		if err != nil {
			return 0, err
		}
	}
	pos := position
	track := pos < 0
	if track {
		pos = entry.offset
	}
	if pos >= int64(len(src)) {
		return 0, nil
	}
	n := copy(b[offset:offset+length], src[pos:])
	if track {
		entry.offset = pos + int64(n)
	}
	return n, nil
}

// Write copies length bytes from b[offset:] into the descriptor's private
// buffer, growing it as needed. The inode sees nothing until fsync/close.
func (fs *FS) Write(fd int, b []byte, offset, length int, position int64) (int, error) {
	entry, err := getEntry(fd, "write")
	if err != nil {
		return 0, err
	}
	if !isWritable(entry.flags) {
		return 0, errorf(EBADF, "write", entry.path)
	}
	if offset < 0 || length < 0 || position < -1 || offset > len(b)-length {
		return 0, errorf(EINVAL, "write", entry.path)
	}
	if entry.node.isDir() {
		return 0, errorf(EISDIR, "write", entry.path)
	}
	if entry.buf == nil {
		current, err := entry.fs.fileBuffer(entry.node)
		if err != nil {
			return 0, err
		}
		entry.buf = slices.Clone(current)
	}
	pos := position
	track := pos < 0
	if track {
		pos = entry.offset
	}
	end := pos + int64(length)
	if end > int64(len(entry.buf)) {
		grown := make([]byte, end)
		copy(grown, entry.buf)
		entry.buf = grown
	}
	copy(entry.buf[pos:end], b[offset:offset+length])
	entry.written, entry.dirty = true, true
	if track {
		entry.offset = end
	}
	if entry.flags&O_SYNC != 0 {
		entry.fs.fsyncEntry(entry, false)
	}
	return length, nil
}

// Seek repositions the descriptor offset.
func (fs *FS) Seek(fd int, offset int64, whence int) (int64, error) {
	entry, err := getEntry(fd, "seek")
	if err != nil {
		return 0, err
	}
	switch whence {
	case io.SeekStart:
		entry.offset = offset
	case io.SeekCurrent:
		entry.offset += offset
	case io.SeekEnd:
		size := int64(len(entry.buf))
		if entry.buf == nil {
			size = entry.fs.fileSize(entry.node)
		}
		entry.offset = size + offset
	default:
		return 0, errorf(EINVAL, "seek", entry.path)
	}
	if entry.offset < 0 {
		entry.offset = 0
		return 0, errorf(EINVAL, "seek", entry.path)
	}
	return entry.offset, nil
}

// fsyncEntry installs the descriptor's private buffer into the inode and
// stamps times; with metadata it also refreshes the cached size.
func (fs *FS) fsyncEntry(entry *fileDescription, metadata bool) {
	if entry.dirty && entry.buf != nil {
		entry.fs.setFileBuffer(entry.node, entry.buf)
		now := entry.fs.now()
		entry.node.mtimeMs, entry.node.ctimeMs = now, now
		if metadata {
			entry.node.size = int64(len(entry.buf))
			entry.node.haveSize = true
		}
		entry.dirty = false
	}
}

// Fsync flushes the descriptor's writes and metadata to the inode.
func (fs *FS) Fsync(fd int) error {
	entry, err := getEntry(fd, "fsync")
	if err != nil {
		return err
	}
	fs.fsyncEntry(entry, true)
	return nil
}

// Fdatasync flushes the descriptor's data, leaving cached metadata alone.
func (fs *FS) Fdatasync(fd int) error {
	entry, err := getEntry(fd, "fdatasync")
	if err != nil {
		return err
	}
	fs.fsyncEntry(entry, false)
	return nil
}

// Fstat reports the stats of the inode behind a descriptor.
func (fs *FS) Fstat(fd int) (*Stats, error) {
	entry, err := getEntry(fd, "fstat")
	if err != nil {
		return nil, err
	}
	return entry.fs.statsFor(entry.node), nil
}

// Close unregisters the descriptor and performs a final fsync with
// metadata.
func (fs *FS) Close(fd int) error {
	entry, err := getEntry(fd, "close")
	if err != nil {
		return err
	}
	delete(openFiles, fd)
	fs.fsyncEntry(entry, true)
	return nil
}

const readChunkSize = 8192

// ReadAll reads from the descriptor's current offset to the end of file.
func (fs *FS) ReadAll(fd int) ([]byte, error) {
	var out []byte
	chunk := make([]byte, readChunkSize)
	for {
		n, err := fs.Read(fd, chunk, 0, len(chunk), -1)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return out, nil
		}
		out = append(out, chunk[:n]...)
	}
}

// WriteAll writes data at the descriptor's current offset.
func (fs *FS) WriteAll(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := fs.Write(fd, data, 0, len(data), -1)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// ReadFile returns the full contents of the file at path.
func (fs *FS) ReadFile(path string) ([]byte, error) {
	fd, err := fs.Open(path, O_RDONLY)
	if err != nil {
		return nil, err
	}
	defer fs.Close(fd)
	return fs.ReadAll(fd)
}

// WriteFile replaces the contents of the file at path, creating it if
// needed.
func (fs *FS) WriteFile(path string, data []byte, mode ...uint32) error {
	fd, err := fs.Open(path, O_WRONLY|O_CREAT|O_TRUNC, mode...)
	if err != nil {
		return err
	}
	if err := fs.WriteAll(fd, data); err != nil {
		fs.Close(fd)
		return err
	}
	return fs.Close(fd)
}

// AppendFile appends data to the file at path, creating it if needed.
func (fs *FS) AppendFile(path string, data []byte, mode ...uint32) error {
	fd, err := fs.Open(path, O_WRONLY|O_CREAT|O_APPEND, mode...)
	if err != nil {
		return err
	}
	if err := fs.WriteAll(fd, data); err != nil {
		fs.Close(fd)
		return err
	}
	return fs.Close(fd)
}
