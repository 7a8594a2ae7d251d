package vfs

import "time"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DlHandle is an opaque handle of a dynamically loaded library.
type DlHandle uintptr

// IOS holds the operating system services of a VFS that have nothing to do
// with file storage. Wrapping layers forward these calls to the backend they
// wrap.
type IOS interface {
	// DlOpen loads the shared library at filename.
	DlOpen(filename string) (DlHandle, error)
	// DlError returns a description of the most recent DlOpen/DlSym failure.
	DlError() string
	// DlSym resolves symbol in a library previously loaded with DlOpen.
	DlSym(handle DlHandle, symbol string) (uintptr, error)
	// DlClose unloads a library previously loaded with DlOpen.
	DlClose(handle DlHandle) error
	// Randomness fills buf with random bytes and returns how many were written.
	Randomness(buf []byte) int
	// Sleep suspends the caller for at least d and returns the time actually slept.
	Sleep(d time.Duration) time.Duration
	// CurrentTime returns the current time as a Julian day number.
	CurrentTime() float64
	// CurrentTimeInt64 returns the current time as milliseconds since the
	// Julian epoch.
	CurrentTimeInt64() int64
	// GetLastError returns the code and text of the most recent OS level error.
	GetLastError() (code int, msg string)
}

// IVFS is the path-level contract of a storage backend.
type IVFS interface {
	IOS

	// Name is the unique name the VFS is registered under.
	Name() string
	// MaxPathname is the longest name Open accepts.
	MaxPathname() int
	// Open opens the file called name. The returned flags describe how the
	// file was actually opened (e.g. OpenReadOnly after a downgrade).
	Open(name string, flags OpenFlag) (file IFile, outFlags OpenFlag, err error)
	// Delete removes the file called name. If syncDir is set the deletion
	// must be durable when Delete returns.
	Delete(name string, syncDir bool) error
	// Access reports whether name exists (AccessExists) or is accessible in
	// the requested mode.
	Access(name string, flags AccessFlag) (bool, error)
	// FullPathname canonicalizes name.
	FullPathname(name string) (string, error)
}

// IFile is an open file handle. A handle is not safe for concurrent use.
type IFile interface {
	Close() error
	// ReadAt reads len(p) bytes at off. A read that crosses the end of the
	// file zero fills the rest of p and fails with IOERR_SHORT_READ.
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Truncate(size int64) error
	Sync(flags SyncFlag) error
	FileSize() (int64, error)
	// Lock moves the handle to a stricter lock level.
	Lock(level LockLevel) error
	// Unlock moves the handle to a laxer lock level (LockShared or LockNone).
	Unlock(level LockLevel) error
	// CheckReservedLock reports whether another handle holds RESERVED or higher.
	CheckReservedLock() (bool, error)
	// FileControl runs a backend specific control operation. Unknown
	// operations fail with NOTFOUND.
	FileControl(op FcntlOp, arg interface{}) error
	SectorSize() int
	DeviceCharacteristics() DeviceCaps
}

// --------------------------------------------------------------------------
// Flags
// --------------------------------------------------------------------------

// OpenFlag are the flags passed to IVFS.Open.
type OpenFlag uint32

const (
	OpenReadOnly      OpenFlag = 0x00000001
	OpenReadWrite     OpenFlag = 0x00000002
	OpenCreate        OpenFlag = 0x00000004
	OpenDeleteOnClose OpenFlag = 0x00000008
	OpenExclusive     OpenFlag = 0x00000010
	OpenAutoProxy     OpenFlag = 0x00000020
	OpenURI           OpenFlag = 0x00000040
	OpenMemory        OpenFlag = 0x00000080
	OpenMainDB        OpenFlag = 0x00000100
	OpenTempDB        OpenFlag = 0x00000200
	OpenTransientDB   OpenFlag = 0x00000400
	OpenMainJournal   OpenFlag = 0x00000800
	OpenTempJournal   OpenFlag = 0x00001000
	OpenSubJournal    OpenFlag = 0x00002000
	OpenSuperJournal  OpenFlag = 0x00004000
	OpenNoMutex       OpenFlag = 0x00008000
	OpenFullMutex     OpenFlag = 0x00010000
	OpenSharedCache   OpenFlag = 0x00020000
	OpenPrivateCache  OpenFlag = 0x00040000
	OpenWAL           OpenFlag = 0x00080000
)

// OpenCategoryMask selects the file category bits of an OpenFlag.
const OpenCategoryMask = OpenMainDB | OpenTempDB | OpenTransientDB | OpenMainJournal |
	OpenTempJournal | OpenSubJournal | OpenSuperJournal | OpenWAL

// Category returns only the file category bits of f.
func (f OpenFlag) Category() OpenFlag { return f & OpenCategoryMask }

// Has reports whether all bits of o are set in f.
func (f OpenFlag) Has(o OpenFlag) bool { return f&o == o }

// AccessFlag selects the check performed by IVFS.Access.
type AccessFlag int

const (
	AccessExists    AccessFlag = 0
	AccessReadWrite AccessFlag = 1
	AccessRead      AccessFlag = 2
)

// SyncFlag are the flags passed to IFile.Sync.
type SyncFlag int

const (
	SyncNormal   SyncFlag = 0x00002
	SyncFull     SyncFlag = 0x00003
	SyncDataOnly SyncFlag = 0x00010
)

// FcntlOp identifies an IFile.FileControl operation.
type FcntlOp int

const (
	// FcntlLockState stores the current LockLevel into the *int argument.
	FcntlLockState FcntlOp = 1
)

// DeviceCaps are the capability flags returned by IFile.DeviceCharacteristics.
type DeviceCaps uint32

const (
	IocapAtomic              DeviceCaps = 0x00000001
	IocapAtomic512           DeviceCaps = 0x00000002
	IocapAtomic1K            DeviceCaps = 0x00000004
	IocapAtomic2K            DeviceCaps = 0x00000008
	IocapAtomic4K            DeviceCaps = 0x00000010
	IocapAtomic8K            DeviceCaps = 0x00000020
	IocapAtomic16K           DeviceCaps = 0x00000040
	IocapAtomic32K           DeviceCaps = 0x00000080
	IocapAtomic64K           DeviceCaps = 0x00000100
	IocapSafeAppend          DeviceCaps = 0x00000200
	IocapSequential          DeviceCaps = 0x00000400
	IocapUndeletableWhenOpen DeviceCaps = 0x00000800
	IocapPowersafeOverwrite  DeviceCaps = 0x00001000
	IocapImmutable           DeviceCaps = 0x00002000
	IocapBatchAtomic         DeviceCaps = 0x00004000
)

// AtomicCapFor returns the IocapAtomicNNN flag matching blockSize, or 0 if
// blockSize is not a power of two between 512 and 64K.
func AtomicCapFor(blockSize int) DeviceCaps {
	flag := IocapAtomic512
	for size := 512; size <= 64*1024; size <<= 1 {
		if size == blockSize {
			return flag
		}
		flag <<= 1
	}
	return 0
}

// --------------------------------------------------------------------------
// Lock Levels
// --------------------------------------------------------------------------

// LockLevel is the lock a handle holds on a file, ordered from lax to strict.
type LockLevel int

const (
	LockNone LockLevel = iota
	LockShared
	LockReserved
	LockPending
	LockExclusive
)

func (l LockLevel) String() string {
	switch l {
	case LockNone:
		return "none"
	case LockShared:
		return "shared"
	case LockReserved:
		return "reserved"
	case LockPending:
		return "pending"
	case LockExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}
