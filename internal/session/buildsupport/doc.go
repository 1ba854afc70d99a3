// Package buildsupport implements the build-tool provisioning hook: a
// per-language, purely advisory step a session may run before spawning its
// LSP child, e.g. generating the Bloop build descriptor Metals needs for a
// Scala workspace. Failure here never blocks session start; it is logged
// and the session proceeds to spawn the LSP child regardless.
package buildsupport
