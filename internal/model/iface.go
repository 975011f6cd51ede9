package model

// TableLoader reads the persisted folder table. found is false when nothing
// has been saved yet.
type TableLoader interface {
	LoadTable() (table FolderTable, found bool, err error)
}

// TableSaver persists the whole folder table.
type TableSaver interface {
	SaveTable(table FolderTable) error
}

// TableStore is the persistence adapter contract used by the service.
type TableStore interface {
	TableLoader
	TableSaver
}

// JudgmentRecorder accepts judgment events without blocking the caller.
type JudgmentRecorder interface {
	Add(event *JudgmentEvent)
}

// JudgmentWriter provides append-oriented writes for the judgment log.
type JudgmentWriter interface {
	InsertJudgmentBatch(events []*JudgmentEvent) error
}

// JudgmentReader provides aggregated reads of the judgment log.
type JudgmentReader interface {
	DailyJudgments(deckID int64, days int) ([]DailyJudgments, error)
}

// StudyAPI is the command surface shared by the in-process session, the
// socket RPC client, and the HTTP API.
type StudyAPI interface {
	State() (StudyState, error)
	Open(folder FolderKey, deckID int64) (StudyState, error)
	CloseDeck() (StudyState, error)
	Judge(dir Direction) (StudyState, error)
	Previous() (StudyState, error)
	Import(name string, cards []CardInput) (StudyState, error)
	CreateFolder(name string) (StudyState, error)
	MoveDeck(deckID int64, from, to string) (StudyState, error)
	Reset(deckID int64, folder FolderKey) (StudyState, error)
	DeleteDeck(deckID int64, folder string) (StudyState, error)
	DeleteFolder(name string) (StudyState, error)
	DailyJudgments(deckID int64, days int) ([]DailyJudgments, error)
}
