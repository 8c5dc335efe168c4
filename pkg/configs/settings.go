package configs

// Schema is what every configuration file is unified with.
const Schema = `
output?: {
	comments?: bool
	verify?: bool
}
log?: {
	level?: "debug" | "info" | "warn" | "error"
	file?: string
	journal?: bool
}
`

// Comments turns on ; annotations in the generated assembly.
type Comments bool

func (Module) Comments(loader Loader) Comments {
	return First[Comments](loader, "output.comments")
}

// Verify re-checks the generated assembly before it is written.
type Verify bool

func (Module) Verify(loader Loader) Verify {
	return First[Verify](loader, "output.verify")
}

type LogLevel string

func (Module) LogLevel(loader Loader) LogLevel {
	return First[LogLevel](loader, "log.level")
}

// LogFile is a path that receives a JSON copy of the log.
type LogFile string

func (Module) LogFile(loader Loader) LogFile {
	return First[LogFile](loader, "log.file")
}

type Journal bool

func (Module) Journal(loader Loader) Journal {
	return First[Journal](loader, "log.journal")
}
