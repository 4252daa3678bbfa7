package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"settlechain/native/agreement"
	"settlechain/native/condition"
	"settlechain/native/settlement"
)

const usage = `settlectl derives identifiers offline.

Usage:
  settlectl agreement-id -seed <hash> -creator <address>
  settlectl condition-id -agreement <hash> -kind <kind> -params <hash>
  settlectl hash-lock -preimage <hex>
  settlectl module-address -kind <kind>
  settlectl kinds
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "agreement-id":
		err = agreementID(os.Args[2:])
	case "condition-id":
		err = conditionID(os.Args[2:])
	case "hash-lock":
		err = hashLock(os.Args[2:])
	case "module-address":
		err = moduleAddress(os.Args[2:])
	case "kinds":
		for _, kind := range settlement.Kinds() {
			fmt.Println(kind)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func agreementID(args []string) error {
	fs := flag.NewFlagSet("agreement-id", flag.ExitOnError)
	seedArg := fs.String("seed", "", "32 byte hex seed")
	creatorArg := fs.String("creator", "", "20 byte hex creator address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	seed, err := parseHash(*seedArg)
	if err != nil {
		return err
	}
	creator, err := parseAddress(*creatorArg)
	if err != nil {
		return err
	}
	id := agreement.DeriveID(seed, creator)
	fmt.Println(hex.EncodeToString(id[:]))
	return nil
}

func conditionID(args []string) error {
	fs := flag.NewFlagSet("condition-id", flag.ExitOnError)
	agreementArg := fs.String("agreement", "", "32 byte hex agreement id")
	kindArg := fs.String("kind", "", "condition kind")
	paramsArg := fs.String("params", "", "32 byte hex parameter hash")
	if err := fs.Parse(args); err != nil {
		return err
	}
	agreementHash, err := parseHash(*agreementArg)
	if err != nil {
		return err
	}
	paramHash, err := parseHash(*paramsArg)
	if err != nil {
		return err
	}
	if *kindArg == "" {
		return fmt.Errorf("kind is required")
	}
	id := condition.GenerateID(agreementHash, *kindArg, paramHash)
	fmt.Println(hex.EncodeToString(id[:]))
	return nil
}

func hashLock(args []string) error {
	fs := flag.NewFlagSet("hash-lock", flag.ExitOnError)
	preimageArg := fs.String("preimage", "", "hex encoded preimage")
	if err := fs.Parse(args); err != nil {
		return err
	}
	preimage, err := hex.DecodeString(strings.TrimPrefix(*preimageArg, "0x"))
	if err != nil {
		return fmt.Errorf("invalid preimage: %w", err)
	}
	digest := settlement.HashLockValues(preimage)
	fmt.Println(hex.EncodeToString(digest[:]))
	return nil
}

func moduleAddress(args []string) error {
	fs := flag.NewFlagSet("module-address", flag.ExitOnError)
	kindArg := fs.String("kind", "", "condition kind")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kindArg == "" {
		return fmt.Errorf("kind is required")
	}
	addr := settlement.ModuleAddress(*kindArg)
	fmt.Println(hex.EncodeToString(addr[:]))
	return nil
}

func parseHash(s string) ([32]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("expected 32 byte hex value, got %q", s)
	}
	var out [32]byte
	copy(out[:], raw)
	return out, nil
}

func parseAddress(s string) ([20]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(raw) != 20 {
		return [20]byte{}, fmt.Errorf("expected 20 byte hex value, got %q", s)
	}
	var out [20]byte
	copy(out[:], raw)
	return out, nil
}
