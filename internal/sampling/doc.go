// Package sampling holds every random draw of the pipeline apart from background
// colors: picking source images and assigning rows to train/validation/test.
//
// No function in this package touches a process-wide generator. Callers build a
// *rand.Rand with NewRand (seeded or not) and pass it in, and hand each worker
// goroutine its own generator obtained from Derive.
package sampling
