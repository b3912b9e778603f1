package service

import "sync"

// stateMu is the process-wide serialization point for store writes. The
// stores guard individual calls only, so every read-modify-write sequence
// that spans calls (wishlist edits, catalog edits, the submission duplicate
// check, the whole approval) runs under this lock. Plain reads do not.
var stateMu sync.Mutex
