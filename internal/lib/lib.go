// Package lib holds integrations that do not fit strictly into the other
// layers: background reconciliation jobs on Redis/Asynq (lib/job) and the
// Resend email client for failure reports (lib/email).
package lib
