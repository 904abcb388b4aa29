// Package inspect replays recorded activation transitions step by step and
// checks the files a pipeline would read or overwrite.
package inspect
