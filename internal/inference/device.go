package inference

import (
	"os"
	"os/exec"
	"strings"
	"sync"

	"ecgprep/pkg/contracts/domain"
)

// Device preferences accepted by DetectDevice.
const (
	DeviceAuto = "auto"
)

var (
	detectOnce sync.Once
	detected   domain.Device

	// acceleratorAvailable is swapped out in tests.
	acceleratorAvailable = detectCUDA
)

// DetectDevice resolves a device preference. "cpu" and "cuda" are returned as
// is; anything else checks for an accelerator once per process and reuses the
// answer on later calls.
func DetectDevice(pref string) domain.Device {
	switch strings.ToLower(strings.TrimSpace(pref)) {
	case string(domain.DeviceCPU):
		return domain.DeviceCPU
	case string(domain.DeviceCUDA):
		return domain.DeviceCUDA
	}

	detectOnce.Do(func() {
		detected = domain.DeviceCPU
		if acceleratorAvailable() {
			detected = domain.DeviceCUDA
		}
	})
	return detected
}

func detectCUDA() bool {
	if v, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES"); ok {
		v = strings.TrimSpace(v)
		if v == "" || v == "-1" {
			return false
		}
	}
	if _, err := os.Stat("/dev/nvidia0"); err == nil {
		return true
	}
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}
