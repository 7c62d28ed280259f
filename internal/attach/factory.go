package attach

import (
	"context"
	"fmt"
	"os"
)

// OpenFromEnv selects an attachment backend using environment variables.
// Defaults to the filesystem driver when unset.
//
//	VIALTRACK_ATTACH_DRIVER: fs|s3|memory (default fs)
//	VIALTRACK_ATTACH_FS_ROOT: filesystem root (default ./attachments)
func OpenFromEnv(ctx context.Context) (Store, error) {
	driver := os.Getenv("VIALTRACK_ATTACH_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFS(os.Getenv("VIALTRACK_ATTACH_FS_ROOT"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown attachment driver %s", driver)
	}
}
