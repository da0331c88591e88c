// Package devshm implements the /dev/shm stressor: it repeatedly grows an
// unlinked tmpfs file to the largest size fallocate will grant, maps it,
// dirties every page, and tears it all down again.
package devshm
