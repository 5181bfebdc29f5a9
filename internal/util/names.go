package util

import (
	"fmt"
	"strconv"
)

// ContainerName returns the deterministic container name for a cluster id,
// zero-padded to five digits (ids above 99999 keep their natural width).
func ContainerName(id int) string {
	return fmt.Sprintf("%05d", id)
}

// ParseContainerName decodes a cluster id from a container name produced by
// ContainerName. Foreign names yield an error so backends can skip them.
func ParseContainerName(name string) (int, error) {
	id, err := strconv.Atoi(name)
	if err != nil {
		return 0, fmt.Errorf("clusterstore: not a container name %q: %w", name, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("clusterstore: negative cluster id in container name %q", name)
	}
	return id, nil
}
