package dispatch

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrRejected matches every RejectedError.
	ErrRejected = errors.New("rejected by ledger")
	// ErrUnavailable matches every UnavailableError. The outcome of the
	// call is unknown; re-query the account to learn it.
	ErrUnavailable = errors.New("ledger unavailable")
	// ErrAlreadySubmitted is returned when a request is submitted twice.
	ErrAlreadySubmitted = errors.New("request already submitted")
)

// ProgramError is the error the program reported, as found in its logs.
// Name is empty when only the numeric code is known.
type ProgramError struct {
	Name    string
	Number  int
	Message string
}

func (e *ProgramError) String() string {
	if e.Name == "" {
		return fmt.Sprintf("custom program error %d", e.Number)
	}
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Number, e.Message)
}

// RejectedError is a definitive refusal, either in preflight simulation or
// as a failed on-chain transaction.
type RejectedError struct {
	Instruction string
	// Signature is zero when the transaction was refused before landing.
	Signature solana.Signature
	// Code is the JSON-RPC error code for preflight rejections.
	Code    int
	Message string
	Program *ProgramError
	Logs    []string
}

func (e *RejectedError) Error() string {
	msg := e.Message
	if e.Program != nil {
		msg = e.Program.String()
	}
	return fmt.Sprintf("%s rejected: %s", e.Instruction, msg)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// UnavailableError is a transport failure, timeout or cancellation before a
// definitive answer was obtained.
type UnavailableError struct {
	Instruction string
	// Signature is set when the transaction may have been sent.
	Signature solana.Signature
	Op        string
	Err       error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: failed to %s: %v", e.Instruction, e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// JSON-RPC codes that mean the node looked at the transaction and refused it.
var rejectedCodes = map[int]bool{
	-32002: true, // transaction simulation failed
	-32003: true, // signature verification failure
	-32013: true, // signature length mismatch
	-32602: true, // invalid params
}

// classifySend turns a sendTransaction error into a RejectedError or
// UnavailableError.
func classifySend(ixName string, err error) error {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) && rejectedCodes[rpcErr.Code] {
		logs := preflightLogs(rpcErr.Data)
		program := ParseProgramError(logs)
		if program == nil {
			program = programErrorFromStatus(preflightErr(rpcErr.Data))
		}
		return &RejectedError{
			Instruction: ixName,
			Code:        rpcErr.Code,
			Message:     rpcErr.Message,
			Program:     program,
			Logs:        logs,
		}
	}
	return &UnavailableError{Instruction: ixName, Op: "send transaction", Err: err}
}

func preflightLogs(data any) []string {
	m, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m["logs"].([]any)
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(raw))
	for _, l := range raw {
		if s, ok := l.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}

func preflightErr(data any) any {
	m, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	return m["err"]
}

var (
	anchorErrorRe = regexp.MustCompile(`Error Code: (\w+)\. Error Number: (\d+)\. Error Message: (.*?)\.?$`)
	customErrorRe = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
)

// ParseProgramError finds the program error in a transaction's logs. The
// error name is needed to tell errors apart: every error enum of the
// program numbers its variants from 6000.
func ParseProgramError(logs []string) *ProgramError {
	for _, line := range logs {
		if m := anchorErrorRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[2])
			return &ProgramError{Name: m[1], Number: n, Message: m[3]}
		}
	}
	for _, line := range logs {
		if m := customErrorRe.FindStringSubmatch(line); m != nil {
			n, err := strconv.ParseInt(m[1], 16, 64)
			if err == nil {
				return &ProgramError{Number: int(n)}
			}
		}
	}
	return nil
}

// programErrorFromStatus reads {"InstructionError":[idx,{"Custom":n}]}.
func programErrorFromStatus(status any) *ProgramError {
	m, ok := status.(map[string]any)
	if !ok {
		return nil
	}
	ie, ok := m["InstructionError"].([]any)
	if !ok || len(ie) != 2 {
		return nil
	}
	inner, ok := ie[1].(map[string]any)
	if !ok {
		return nil
	}
	switch n := inner["Custom"].(type) {
	case float64:
		return &ProgramError{Number: int(n)}
	case int:
		return &ProgramError{Number: n}
	}
	return nil
}

func statusMessage(status any) string {
	if status == nil {
		return ""
	}
	if s, ok := status.(string); ok {
		return s
	}
	return strings.TrimSpace(fmt.Sprintf("%v", status))
}
