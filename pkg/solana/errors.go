package solana

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"
)

// TransactionErrorKey names a transaction level failure. Only keys the vault
// client reacts to or produces are listed.
//
// Reference: https://github.com/solana-labs/solana/blob/master/sdk/src/transaction/error.rs
type TransactionErrorKey string

const (
	TransactionErrorAccountInUse            TransactionErrorKey = "AccountInUse"
	TransactionErrorAccountNotFound         TransactionErrorKey = "AccountNotFound"
	TransactionErrorBlockhashNotFound       TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorDuplicateSignature      TransactionErrorKey = "DuplicateSignature"
	TransactionErrorInstructionError        TransactionErrorKey = "InstructionError"
	TransactionErrorInsufficientFundsForFee TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorSignatureFailure        TransactionErrorKey = "SignatureFailure"
)

// InstructionErrorKey names an instruction level failure.
//
// Reference: https://github.com/solana-labs/solana/blob/master/sdk/program/src/instruction.rs
type InstructionErrorKey string

const (
	InstructionErrorAccountAlreadyInit       InstructionErrorKey = "AccountAlreadyInitialized"
	InstructionErrorCustom                   InstructionErrorKey = "Custom"
	InstructionErrorIncorrectProgramID       InstructionErrorKey = "IncorrectProgramId"
	InstructionErrorInsufficientFunds        InstructionErrorKey = "InsufficientFunds"
	InstructionErrorInvalidAccountData       InstructionErrorKey = "InvalidAccountData"
	InstructionErrorInvalidArgument          InstructionErrorKey = "InvalidArgument"
	InstructionErrorInvalidInstructionData   InstructionErrorKey = "InvalidInstructionData"
	InstructionErrorInvalidSeeds             InstructionErrorKey = "InvalidSeeds"
	InstructionErrorMissingRequiredSignature InstructionErrorKey = "MissingRequiredSignature"
	InstructionErrorNotEnoughAccountKeys     InstructionErrorKey = "NotEnoughAccountKeys"
	InstructionErrorUninitializedAccount     InstructionErrorKey = "UninitializedAccount"
)

// CustomError is a program defined error code.
type CustomError int

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: %x", int(c))
}

// InstructionError is the failure of the instruction at Index. Err is either
// a CustomError or an error whose text is an InstructionErrorKey.
type InstructionError struct {
	Index int
	Err   error
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", i.Index, i.Err)
}

func (i InstructionError) ErrorKey() InstructionErrorKey {
	switch {
	case i.Err == nil:
		return ""
	case i.CustomError() != nil:
		return InstructionErrorCustom
	default:
		return InstructionErrorKey(i.Err.Error())
	}
}

func (i InstructionError) CustomError() *CustomError {
	if custom, ok := i.Err.(CustomError); ok {
		return &custom
	}
	return nil
}

// wire is the decoded JSON form, e.g. [0, "InvalidArgument"] or
// [2, {"Custom": 3}].
func (i InstructionError) wire() interface{} {
	index := float64(i.Index)
	if custom := i.CustomError(); custom != nil {
		return []interface{}{index, map[string]interface{}{string(InstructionErrorCustom): float64(*custom)}}
	}
	return []interface{}{index, i.Err.Error()}
}

func parseInstructionError(v interface{}) (*InstructionError, error) {
	tuple, ok := v.([]interface{})
	if !ok {
		return nil, errors.New("unexpected instruction error format")
	}
	if len(tuple) != 2 {
		return nil, errors.Errorf("unexpected InstructionError tuple size: %d", len(tuple))
	}

	index, err := parseJSONNumber(tuple[0])
	if err != nil {
		return nil, err
	}
	parsed := &InstructionError{Index: index}

	switch detail := tuple[1].(type) {
	case string:
		parsed.Err = errors.New(detail)
	case map[string]interface{}:
		key, value, err := singleEntry(detail)
		if err != nil {
			return nil, err
		}
		if key != string(InstructionErrorCustom) {
			parsed.Err = errors.New(key)
			break
		}

		code, err := parseJSONNumber(value)
		if err != nil {
			return nil, err
		}
		parsed.Err = CustomError(code)
	default:
		return nil, errors.Errorf("unexpected instruction error detail %T", detail)
	}

	return parsed, nil
}

// TransactionError is a failed transaction as reported by the cluster.
type TransactionError struct {
	key         TransactionErrorKey
	instruction *InstructionError
	raw         interface{}
}

func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{key: key, raw: string(key)}
}

func TransactionErrorFromInstructionError(err *InstructionError) (*TransactionError, error) {
	if err == nil || err.Err == nil {
		return nil, errors.New("instruction error has no cause")
	}

	return &TransactionError{
		key:         TransactionErrorInstructionError,
		instruction: err,
		raw:         map[string]interface{}{string(TransactionErrorInstructionError): err.wire()},
	}, nil
}

// ParseRPCError extracts the transaction error carried in the data of a
// failed sendTransaction call. It returns nil if there is none.
func ParseRPCError(err *jsonrpc.RPCError) (*TransactionError, error) {
	if err == nil {
		return nil, nil
	}

	data, ok := err.Data.(map[string]interface{})
	if !ok {
		return nil, errors.New("expected map type")
	}

	raw, ok := data["err"]
	if !ok || raw == nil {
		return nil, nil
	}
	return ParseTransactionError(raw)
}

// ParseTransactionError parses the decoded "err" field RPC methods return.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &TransactionError{key: TransactionErrorKey(t), raw: raw}, nil
	case map[string]interface{}:
		key, value, err := singleEntry(t)
		if err != nil {
			return nil, err
		}
		if key != string(TransactionErrorInstructionError) {
			return &TransactionError{key: TransactionErrorKey(key), raw: raw}, nil
		}

		instruction, err := parseInstructionError(value)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse instruction error")
		}
		return &TransactionError{key: TransactionErrorInstructionError, instruction: instruction, raw: raw}, nil
	}
	return nil, errors.Errorf("unhandled error type %T", raw)
}

func (t TransactionError) Error() string {
	if t.instruction != nil {
		return t.instruction.Error()
	}
	return string(t.key)
}

func (t TransactionError) ErrorKey() TransactionErrorKey {
	return t.key
}

func (t TransactionError) InstructionError() *InstructionError {
	return t.instruction
}

func (t TransactionError) JSONString() (string, error) {
	b, err := json.Marshal(t.raw)
	return string(b), err
}

// GetCustomError returns the program's custom error code if err is, or wraps,
// a failed transaction whose instruction returned one.
func GetCustomError(err error) (CustomError, bool) {
	var txErr *TransactionError
	if !errors.As(err, &txErr) || txErr.instruction == nil {
		return 0, false
	}

	custom := txErr.instruction.CustomError()
	if custom == nil {
		return 0, false
	}
	return *custom, true
}

func singleEntry(m map[string]interface{}) (string, interface{}, error) {
	if len(m) != 1 {
		return "", nil, errors.Errorf("expected a single entry, got %d", len(m))
	}
	for k, v := range m {
		return k, v, nil
	}
	panic("unreachable")
}

func parseJSONNumber(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, errors.Errorf("non integer value %v", v)
		}
		return int(i), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, errors.Errorf("non numeric value %v", v)
		}
		return int(i), nil
	}
	return 0, errors.Errorf("non numeric value %v", v)
}
