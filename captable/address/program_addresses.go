package address

import "github.com/gagliardetto/solana-go"

// DefaultProgramID is the deployed cap table program.
var DefaultProgramID = solana.MustPublicKeyFromBase58("FejBZZZmyTeqxBLEkbBHiAiHWov7MnTUznNjmi4TyRXR")
