/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"

	"donneur-go/internal/common"
	"donneur-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	firstNameFlag := flag.String("first", "", "Receiver's first name (required)")
	lastNameFlag := flag.String("last", "", "Receiver's last name (required)")
	dobFlag := flag.String("dob", "", "Date of birth as DD-MM-YYYY (required)")
	emailFlag := flag.String("email", "", "Email address for the account creation link (optional)")
	sendLinkFlag := flag.Bool("send-link", false, "Email the account creation link after registering")
	flag.Parse()

	if *firstNameFlag == "" || *lastNameFlag == "" || *dobFlag == "" {
		zap.L().Fatal("Flags are required: --first, --last and --dob")
	}
	if *sendLinkFlag && *emailFlag == "" {
		zap.L().Fatal("--send-link needs --email")
	}

	zap.L().Info("Starting receiver registration",
		zap.String("first_name", *firstNameFlag),
		zap.String("last_name", *lastNameFlag))

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	ident, mailer, err := common.InitializeIdentity(ctx, cfg, dbService)
	if err != nil {
		zap.L().Fatal("Failed to initialize identity service", zap.Error(err))
	}
	defer mailer.Wait()

	receiver, err := ident.RegisterReceiver(ctx, *firstNameFlag, *lastNameFlag, *dobFlag)
	if err != nil {
		zap.L().Fatal("Failed to register receiver", zap.Error(err))
	}
	if *emailFlag != "" {
		if err := ident.SetReceiverEmail(ctx, receiver.Id, *emailFlag); err != nil {
			zap.L().Fatal("Failed to link email", zap.String("receiver_id", receiver.Id), zap.Error(err))
		}
		receiver.Email = *emailFlag
	}

	fmt.Println()
	common.PrintHeader("RECEIVER REGISTERED", common.DefaultWidth)
	fmt.Printf("ID:    %s\n", receiver.Id)
	fmt.Printf("Name:  %s %s\n", receiver.FirstName, receiver.LastName)
	fmt.Printf("DOB:   %s\n", receiver.DateOfBirth)
	if receiver.Email != "" {
		fmt.Printf("Email: %s\n", receiver.Email)
	}
	fmt.Printf("Donation page: %s/donate/%s\n", cfg.Mail.LinkBase, receiver.Id)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	zap.L().Info("Receiver registered successfully", zap.String("id", receiver.Id))

	if !*sendLinkFlag {
		fmt.Println("Run again with --send-link, or use the API, to email an account creation link")
		return
	}

	link, err := ident.SendAccountCreationLink(ctx, receiver.Id)
	if err != nil {
		zap.L().Fatal("Failed to send account creation link", zap.Error(err))
	}
	fmt.Printf("Account creation link queued for %s: %s\n", receiver.Email, link)
}
