// Package study implements the deck/folder learning-state machine.
//
// Every operation is a pure function from one State to the next. A State
// holds the folder table, the active view and the undo history; operations
// never mutate the maps or slices of the State they receive, so a previous
// State stays valid after the next one is built. Operations that cannot apply
// (missing deck, empty deck, duplicate folder name, ...) return the input
// unchanged together with ok=false.
//
// Session wraps the pure operations for a long-running host: it serializes
// calls, persists the table after each mutation and forwards judgment events
// to an optional log.
//
//	s := study.NewSession(model.NewFolderTable(), store)
//	st, _ := s.Import("spanish", rows)
//	st, _ = s.Open(model.Original(model.DefaultFolder), st.Table.Folders[model.DefaultFolder][0].ID)
//	st, _ = s.Judge(model.Knew)
package study
