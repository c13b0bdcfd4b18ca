package avltree

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrIncompleteRead is returned when a hibernated buffer on disk is shorter
// than its recorded length.
var ErrIncompleteRead = errors.New("incomplete read of hibernated data")

// Serialize writes a hibernated allocator to disk and releases the in-memory
// compressed buffers. Lengths are varint-encoded, buffers are raw LZ4 blocks.
func (allocator *Allocator) Serialize(path string) error {
	if allocator.storage != nil {
		panic("serialization requires the hibernated state")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	defer file.Close()

	writer := bufio.NewWriter(file)

	err = writeUvarint(writer, uint64(allocator.hibernatedStorageLen))
	if err != nil {
		return fmt.Errorf("write storage len: %w", err)
	}

	err = writeUvarint(writer, uint64(allocator.hibernatedGapsLen))
	if err != nil {
		return fmt.Errorf("write gaps len: %w", err)
	}

	for idx, buffer := range allocator.hibernatedData {
		err = writeUvarint(writer, uint64(len(buffer)))
		if err != nil {
			return fmt.Errorf("write data len %d: %w", idx, err)
		}

		_, err = writer.Write(buffer)
		if err != nil {
			return fmt.Errorf("write data %d: %w", idx, err)
		}

		allocator.hibernatedData[idx] = nil
	}

	err = writer.Flush()
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	return nil
}

// Deserialize reads a hibernated allocator from disk.
func (allocator *Allocator) Deserialize(path string) error {
	if allocator.storage != nil {
		panic("deserialization requires the hibernated state")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}

	defer file.Close()

	reader := bufio.NewReader(file)

	storageLen, err := binary.ReadUvarint(reader)
	if err != nil {
		return fmt.Errorf("read storage len: %w", err)
	}

	allocator.hibernatedStorageLen = int(storageLen)

	gapsLen, err := binary.ReadUvarint(reader)
	if err != nil {
		return fmt.Errorf("read gaps len: %w", err)
	}

	allocator.hibernatedGapsLen = int(gapsLen)

	for idx := range allocator.hibernatedData {
		dataLen, readErr := binary.ReadUvarint(reader)
		if readErr != nil {
			return fmt.Errorf("read data len %d: %w", idx, readErr)
		}

		allocator.hibernatedData[idx] = make([]byte, int(dataLen))

		bytesRead, readErr := io.ReadFull(reader, allocator.hibernatedData[idx])
		if readErr != nil {
			return fmt.Errorf("%w %d: %d instead of %d", ErrIncompleteRead, idx, bytesRead, int(dataLen))
		}
	}

	return nil
}

func writeUvarint(writer io.Writer, value uint64) error {
	var scratch [binary.MaxVarintLen64]byte

	written := binary.PutUvarint(scratch[:], value)

	_, err := writer.Write(scratch[:written])
	if err != nil {
		return fmt.Errorf("write uvarint: %w", err)
	}

	return nil
}
