// Package audio is the keystroke sound engine. It decodes a bank's samples
// into memory with beep, plays them through a fixed round-robin pool of
// voices mixed into a single output, and serializes every control operation
// through one queue so key capture never touches audio state directly.
package audio
