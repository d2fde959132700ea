package stage

import (
	"fmt"
	"os"

	"reelpress/internal/services"
)

// RequireFile verifies a stage input artifact exists and is at least minBytes.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func RequireFile(component, path string, minBytes int64) error {
	if path == "" {
		return services.Wrap(
			services.ErrValidation, component, "check input file",
			"No input file recorded for this stage; rerun the job", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, component, "check input file",
			fmt.Sprintf("Input file %s is missing", path), err)
	}
	if info.IsDir() {
		return services.Wrap(
			services.ErrValidation, component, "check input file",
			fmt.Sprintf("Input path %s is a directory", path), nil)
	}
	if minBytes > 0 && info.Size() < minBytes {
		return services.Wrap(
			services.ErrValidation, component, "check input file",
			fmt.Sprintf("Input file %s is %d bytes, below the %d byte minimum", path, info.Size(), minBytes), nil)
	}
	return nil
}
