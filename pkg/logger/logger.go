// Package logger provides the aggregate INFO/WARN/ERROR logger used
// throughout the engine, plus the block-structured progress messages the
// original engine prints around long-running phases (graph load, planning,
// each walk epoch).
package logger

import (
	"fmt"
	"log"
	"os"
)

type Aggregate struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
}

// New() returns an initialized Logger
func New(file *os.File) *Aggregate {
	infoLogger := log.New(file, "INFO: ", log.LstdFlags)
	warnLogger := log.New(file, "WARN: ", log.LstdFlags)
	errorLogger := log.New(file, "ERROR: ", log.LstdFlags)

	return &Aggregate{
		infoLogger:  infoLogger,
		warnLogger:  warnLogger,
		errorLogger: errorLogger,
	}
}

// Info() prints an INFO log
func (l *Aggregate) Info(v ...interface{}) {
	l.infoLogger.Println(v...)
}

// Warn() prints an WARN log
func (l *Aggregate) Warn(v ...interface{}) {
	l.warnLogger.Println(v...)
}

// Error() prints an ERROR log
func (l *Aggregate) Error(v ...interface{}) {
	l.errorLogger.Println(v...)
}

// Init() initialise the logger and the file it prints to.
func Init(filePath string) (*Aggregate, *os.File) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		panic(err)
	}
	l := New(file)
	return l, file
}

// BlockBegin marks the start of a named phase (graph load, planning, an
// epoch), mirroring the original engine's bracketed progress banners.
func (l *Aggregate) BlockBegin(name string) {
	l.warnLogger.Println(blockBeginStr(name))
}

// BlockMid logs a message nested within the current phase.
func (l *Aggregate) BlockMid(msg string, v ...interface{}) {
	l.warnLogger.Println(blockMidStr() + fmt.Sprintf(msg, v...))
}

// BlockEnd marks the end of a named phase.
func (l *Aggregate) BlockEnd(name string) {
	l.warnLogger.Println(blockEndStr(name))
}

func blockBeginStr(name string) string { return fmt.Sprintf("==== %s ====", name) }
func blockMidStr() string              { return "  -- " }
func blockEndStr(name string) string   { return fmt.Sprintf("==== %s done ====", name) }
