
// Package fuzztests houses Go fuzz harnesses that exercise the listing
// pipeline (source -> asm -> vm -> repair). Its goal is to smoke test
// robustness and guard against panics or hangs on arbitrary inputs.
//
// Назначение: загружать байты в FileSet, собирать программу и прогонять её
// через машину и поиск ремонта.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/source, internal/asm, internal/vm, internal/repair,
// internal/diag, internal/testkit.

package fuzztests
